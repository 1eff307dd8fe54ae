// Package sla computes response and resolution deadlines from ticket
// priority. The duration table is injected configuration, not engine
// constants; deadlines are computed once at creation time.
package sla

import (
	"time"

	"github.com/plantops/escalation-service/internal/config"
	"github.com/plantops/escalation-service/internal/domain"
)

// Deadlines holds the computed SLA timestamps for a ticket.
type Deadlines struct {
	Response   time.Time
	Resolution time.Time
}

// Calculator derives deadlines from an injected priority -> window table.
type Calculator struct {
	windows map[domain.TicketPriority]config.SLAWindow
}

// NewCalculator builds a calculator from configuration.
func NewCalculator(cfg config.SLAConfig) *Calculator {
	return &Calculator{
		windows: map[domain.TicketPriority]config.SLAWindow{
			domain.TicketPriorityCritical: cfg.Critical,
			domain.TicketPriorityHigh:     cfg.High,
			domain.TicketPriorityMedium:   cfg.Medium,
			domain.TicketPriorityLow:      cfg.Low,
		},
	}
}

// Deadlines returns the response and resolution deadlines for a ticket of
// the given priority created at createdAt. Pure: same inputs, same outputs.
func (c *Calculator) Deadlines(priority domain.TicketPriority, createdAt time.Time) Deadlines {
	window, ok := c.windows[priority]
	if !ok {
		window = c.windows[domain.TicketPriorityMedium]
	}
	return Deadlines{
		Response:   createdAt.Add(window.Response),
		Resolution: createdAt.Add(window.Resolution),
	}
}
