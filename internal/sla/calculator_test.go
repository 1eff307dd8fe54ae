package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plantops/escalation-service/internal/config"
	"github.com/plantops/escalation-service/internal/domain"
)

func testConfig() config.SLAConfig {
	return config.SLAConfig{
		Critical: config.SLAWindow{Response: time.Hour, Resolution: 4 * time.Hour},
		High:     config.SLAWindow{Response: 4 * time.Hour, Resolution: 24 * time.Hour},
		Medium:   config.SLAWindow{Response: 8 * time.Hour, Resolution: 72 * time.Hour},
		Low:      config.SLAWindow{Response: 24 * time.Hour, Resolution: 168 * time.Hour},
	}
}

func TestDeadlinesFollowConfiguredWindows(t *testing.T) {
	calc := NewCalculator(testConfig())
	createdAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	deadlines := calc.Deadlines(domain.TicketPriorityCritical, createdAt)
	assert.Equal(t, createdAt.Add(time.Hour), deadlines.Response)
	assert.Equal(t, createdAt.Add(4*time.Hour), deadlines.Resolution)

	deadlines = calc.Deadlines(domain.TicketPriorityLow, createdAt)
	assert.Equal(t, createdAt.Add(24*time.Hour), deadlines.Response)
	assert.Equal(t, createdAt.Add(168*time.Hour), deadlines.Resolution)
}

func TestHigherPriorityGetsTighterDeadlines(t *testing.T) {
	calc := NewCalculator(testConfig())
	createdAt := time.Now()

	critical := calc.Deadlines(domain.TicketPriorityCritical, createdAt)
	high := calc.Deadlines(domain.TicketPriorityHigh, createdAt)
	medium := calc.Deadlines(domain.TicketPriorityMedium, createdAt)
	low := calc.Deadlines(domain.TicketPriorityLow, createdAt)

	assert.True(t, critical.Response.Before(high.Response))
	assert.True(t, high.Response.Before(medium.Response))
	assert.True(t, medium.Response.Before(low.Response))
	assert.True(t, critical.Resolution.Before(low.Resolution))
}

func TestDeadlinesAreDeterministic(t *testing.T) {
	calc := NewCalculator(testConfig())
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := calc.Deadlines(domain.TicketPriorityHigh, createdAt)
	second := calc.Deadlines(domain.TicketPriorityHigh, createdAt)
	assert.Equal(t, first, second)
}

func TestUnknownPriorityFallsBackToMedium(t *testing.T) {
	calc := NewCalculator(testConfig())
	createdAt := time.Now()

	unknown := calc.Deadlines(domain.TicketPriority("bogus"), createdAt)
	medium := calc.Deadlines(domain.TicketPriorityMedium, createdAt)
	assert.Equal(t, medium, unknown)
}
