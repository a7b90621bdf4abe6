package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktrail/worktrail/internal/models"
)

func TestReduceEmpty(t *testing.T) {
	s := Reduce(nil)

	assert.Equal(t, 0, s.Total)
	assert.NotNil(t, s.ByAction)
	assert.NotNil(t, s.ByEntityType)
	assert.NotNil(t, s.BySeverity)
	assert.NotNil(t, s.ByDate)
	assert.Empty(t, s.TopActors)
	assert.NotNil(t, s.TopActors)
}

func TestReduceCounts(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	day1 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	rows := []models.StatRecord{
		{Action: "create", EntityType: "problem", Severity: "info", ActorID: &alice, ActorName: "Alice", CreatedAt: day1},
		{Action: "update", EntityType: "problem", Severity: "warning", ActorID: &alice, ActorName: "Alice", CreatedAt: day1},
		{Action: "create", EntityType: "diary", Severity: "", ActorID: &bob, ActorName: "Bob", CreatedAt: day2},
		{Action: "delete", EntityType: "diary", Severity: "critical", CreatedAt: day2},
	}

	s := Reduce(rows)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, map[string]int{"create": 2, "update": 1, "delete": 1}, s.ByAction)
	assert.Equal(t, map[string]int{"problem": 2, "diary": 2}, s.ByEntityType)
	assert.Equal(t, map[string]int{"info": 2, "warning": 1, "critical": 1}, s.BySeverity)
	assert.Equal(t, map[string]int{"2026-02-01": 2, "2026-02-02": 2}, s.ByDate)

	require.Len(t, s.TopActors, 2)
	assert.Equal(t, models.ActorCount{ActorID: alice, Name: "Alice", Count: 2}, s.TopActors[0])
	assert.Equal(t, models.ActorCount{ActorID: bob, Name: "Bob", Count: 1}, s.TopActors[1])

	sum := 0
	for _, n := range s.ByAction {
		sum += n
	}

	assert.Equal(t, s.Total, sum, "action counts must add up to total")
}

func TestReduceTopActorsCapped(t *testing.T) {
	rows := make([]models.StatRecord, 0, 30)

	for i := range 15 {
		id := uuid.New()
		for range i + 1 {
			rows = append(rows, models.StatRecord{Action: "update", ActorID: &id, ActorName: fmt.Sprintf("actor-%02d", i)})
		}
	}

	s := Reduce(rows)

	require.Len(t, s.TopActors, topActorLimit)
	assert.Equal(t, "actor-14", s.TopActors[0].Name)
	assert.Equal(t, 15, s.TopActors[0].Count)

	for i := 1; i < len(s.TopActors); i++ {
		assert.GreaterOrEqual(t, s.TopActors[i-1].Count, s.TopActors[i].Count)
	}
}

func TestStatsService_AggregateZeroRecords(t *testing.T) {
	reader := &mockStatsReader{
		statsWindow: func(context.Context, models.StatsFilter, models.Window, int) ([]models.StatRecord, bool, error) {
			return nil, false, nil
		},
	}
	svc := NewStatsService(reader, reader, 100, time.Second, testLogger())

	s := svc.Aggregate(context.Background(), models.StatsAudit, models.StatsFilter{}, models.LastDays(time.Now(), 7))

	assert.Equal(t, models.EmptyStats(), s)
}

func TestStatsService_AggregateErrorIsZero(t *testing.T) {
	reader := &mockStatsReader{
		statsWindow: func(context.Context, models.StatsFilter, models.Window, int) ([]models.StatRecord, bool, error) {
			return nil, false, errors.New("statement timeout")
		},
	}
	svc := NewStatsService(reader, reader, 100, time.Second, testLogger())

	s := svc.Aggregate(context.Background(), models.StatsActivity, models.StatsFilter{}, models.Window{})

	assert.Equal(t, 0, s.Total)
	assert.False(t, s.Truncated)
}

func TestStatsService_AggregatePassesCapAndFlagsTruncation(t *testing.T) {
	var gotCap int

	reader := &mockStatsReader{
		statsWindow: func(_ context.Context, _ models.StatsFilter, _ models.Window, rowCap int) ([]models.StatRecord, bool, error) {
			gotCap = rowCap
			return []models.StatRecord{{Action: "create", EntityType: "problem"}}, true, nil
		},
	}
	svc := NewStatsService(reader, reader, 250, time.Second, testLogger())

	s := svc.Aggregate(context.Background(), models.StatsAudit, models.StatsFilter{}, models.Window{})

	assert.Equal(t, 250, gotCap)
	assert.True(t, s.Truncated)
	assert.Equal(t, 1, s.Total)
}

func TestStatsService_UnknownSource(t *testing.T) {
	svc := NewStatsService(nil, nil, 0, time.Second, testLogger())

	s := svc.Aggregate(context.Background(), "ledger", models.StatsFilter{}, models.Window{})

	assert.Equal(t, models.EmptyStats(), s)
	assert.Equal(t, DefaultStatsRowCap, svc.rowCap)
}
