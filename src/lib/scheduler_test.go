package lib

import (
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
)

func TestSchedulerJobs(t *testing.T) {
	s, err := gocron.NewScheduler()
	assert.Nil(t, err)
	NewScheduler(s)
	defer func() {
		_ = s.Shutdown()
		scheduler = nil
	}()

	got, err := GetScheduler()
	assert.Nil(t, err)
	assert.Equal(t, s, got)

	id, err := CreateCronJob(func() {}, time.Minute)
	assert.Nil(t, err)
	assert.NotNil(t, id)

	oid, err := CreateOneTimeCronJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(time.Minute))),
		gocron.NewTask(func() {}),
	)
	assert.Nil(t, err)
	assert.NotNil(t, oid)
	assert.NotEqual(t, *id, *oid)

	assert.Len(t, got.Jobs(), 2)
}
