package testutils

import (
	"testing"

	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
	"github.com/stretchr/testify/require"
)

// SentOperation is one recorded SendOperation call.
type SentOperation struct {
	Revision     int
	Operation    delta.Delta
	Cursor       *domain.Selection
	SubmissionID string
}

// RecordingServer is a ports.ServerAdapter that records every call and lets tests
// fire the registered callbacks by hand.
type RecordingServer struct {
	Sent      []SentOperation
	Cursors   []*domain.Selection
	SendErr   error
	callbacks ports.Callbacks
}

// NewRecordingServer creates an empty recorder.
func NewRecordingServer() *RecordingServer {
	return &RecordingServer{}
}

func (s *RecordingServer) SendOperation(revision int, op delta.Delta, cursor *domain.Selection, submissionID string) error {
	s.Sent = append(s.Sent, SentOperation{
		Revision:     revision,
		Operation:    op,
		Cursor:       cursor,
		SubmissionID: submissionID,
	})
	return s.SendErr
}

func (s *RecordingServer) SendCursor(cursor *domain.Selection) error {
	s.Cursors = append(s.Cursors, cursor)
	return nil
}

func (s *RecordingServer) RegisterCallbacks(cb ports.Callbacks) {
	s.callbacks = cb
}

// Remote delivers a remote operation.
func (s *RecordingServer) Remote(op delta.Delta) {
	s.callbacks.Operation(op)
}

// Ack acknowledges the last sent submission.
func (s *RecordingServer) Ack(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, s.Sent, "ack with nothing sent")
	require.NoError(t, s.callbacks.Ack(s.Last().SubmissionID))
}

// AckID acknowledges submission id and returns the client's answer.
func (s *RecordingServer) AckID(id string) error {
	return s.callbacks.Ack(id)
}

// Rollback rejects the last sent submission.
func (s *RecordingServer) Rollback(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, s.Sent, "rollback with nothing sent")
	require.NoError(t, s.callbacks.Rollback(s.Last().SubmissionID))
}

// RollbackID rejects submission id and returns the client's answer.
func (s *RecordingServer) RollbackID(id string) error {
	return s.callbacks.Rollback(id)
}

// Last returns the most recent SendOperation call.
func (s *RecordingServer) Last() SentOperation {
	return s.Sent[len(s.Sent)-1]
}
