package view

import (
	"time"

	"github.com/ahmetk3436/powerboard/internal/models"
)

// Presenter binds the display settings to BuildRows. It is the only place
// that reads the wall clock.
type Presenter struct {
	IdleVariant bool
	Offset      time.Duration
	Location    *time.Location
	Now         func() time.Time
}

func (p *Presenter) options() Options {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return Options{Now: now(), Offset: p.Offset, Location: p.Location}
}

func (p *Presenter) Table(servers []models.ServerView) Table {
	return Table{
		IdleVariant: p.IdleVariant,
		Rows:        BuildRows(servers, p.options()),
	}
}

// Stamp renders a local time (e.g. when a snapshot was fetched). Unlike
// backend timestamps it is not shifted by Offset.
func (p *Presenter) Stamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout)
}
