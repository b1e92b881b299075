package session

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// startRefresher schedules periodic re-priming of the session's critical
// sheets. The job runs independently of user interaction; a failed refresh
// only logs, since the next foreground read will retry anyway.
func (m *Manager) startRefresher(s *Session) {
	if m.refreshSpec == "" {
		return
	}
	names := s.CriticalSheets()
	c := cron.New()
	if _, err := c.AddFunc(m.refreshSpec, func() { m.refresh(s, names) }); err != nil {
		m.logger.WithFields(log.Fields{
			"spec":  m.refreshSpec,
			"error": err.Error(),
		}).Warn("session.refresh.schedule")
		return
	}
	c.Start()
	s.refresher = c
}

func (m *Manager) refresh(s *Session, names []string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.refreshTimeout)
	defer cancel()
	for _, name := range names {
		if _, err := m.store.GetFresh(ctx, name); err != nil {
			m.logger.WithFields(log.Fields{
				"username": s.User.Username,
				"sheet":    name,
				"error":    err.Error(),
			}).Warn("session.refresh")
		}
	}
}
