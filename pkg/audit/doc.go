// Package audit defines the audit record written for every proxied request
// and the Storage interface its backends implement.
//
// Records are written asynchronously by the recorder subpackage so storage
// latency never blocks request handling, stored in SQLite (or memory) by the
// storage subpackage, and aged out by the retention subpackage on a cron
// schedule.
package audit
