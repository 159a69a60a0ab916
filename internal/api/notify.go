package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ntbworks/dockyard/internal/mailer"
)

// notifyAssignment emails the assigned user. Runs in its own goroutine off
// the request path; a failed notification never fails the assignment.
func (s *Server) notifyAssignment(userID int64, kind, name string) {
	if s.mail == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u, err := s.db.GetUser(ctx, userID)
	if err != nil {
		log.Printf("api: notify assignment, user %d: %v", userID, err)
		return
	}
	to := u.MSEmail
	if to == "" {
		to = u.Email
	}
	if to == "" {
		return
	}

	subject := fmt.Sprintf("You were assigned to %s %q", kind, name)
	err = s.mail.Send(ctx, mailer.Message{
		To:        []string{to},
		Subject:   subject,
		PlainText: fmt.Sprintf("Hello %s,\n\nyou were assigned to %s %q.\n", u.Name, kind, name),
		HTML:      fmt.Sprintf("<p>Hello %s,</p><p>you were assigned to %s <b>%s</b>.</p>", u.Name, kind, name),
	})
	if err != nil {
		log.Printf("api: notify assignment, send to %s: %v", to, err)
	}
}
