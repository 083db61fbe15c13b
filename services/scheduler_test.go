package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Tick(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	owner := env.addUser(t, "Owner", models.RoleOrganizer)
	opening := env.addTournament(t, owner.ID, func(t *models.Tournament) {
		t.Name, t.Status, t.StartDate = "Opening Cup", models.StatusSoon, now.Add(2*time.Hour)
	})

	announcer := NewUpcomingAnnouncer(env.tourns, env.matches, env.regs, env.notifier, 24*time.Hour, nil)
	s := NewScheduler(env.tournamentSvc, announcer, time.Minute, env.metrics, nil)
	s.now = func() time.Time { return now }

	s.Tick(context.Background())

	assert.Equal(t, models.StatusRegistration, env.tournament(t, opening.ID).Status)
	assert.Equal(t, []string{"Opening Cup"}, env.notifier.tournaments)
	assert.Equal(t, 1, env.metrics.schedulerRuns)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	s := NewScheduler(env.tournamentSvc, nil, time.Hour, env.metrics, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		env.metrics.mu.Lock()
		defer env.metrics.mu.Unlock()
		return env.metrics.schedulerRuns == 1
	}, time.Second, 10*time.Millisecond, "first tick runs immediately")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
