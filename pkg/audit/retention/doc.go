// Package retention ages out audit records by time and by count, optionally
// on a cron schedule.
package retention
