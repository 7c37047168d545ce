package session

import (
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts 6-field cron expressions with a leading seconds
// field, so refresh schedules can run sub-minute.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// nextCronDuration parses a 6-field cron expression and returns the
// duration until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := time.Until(sched.Next(time.Now()))
	if d < 0 {
		return 0
	}
	return d
}
