package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogResetNotifier_NeverLogsTokenAtInfo(t *testing.T) {
	const secret = "plaintext-reset-token"
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, reveal := range []bool{false, true} {
		core, logs := observer.New(zapcore.InfoLevel)
		n := NewLogResetNotifier(zap.New(core), reveal)

		if err := n.NotifyReset(context.Background(), ada, secret, expires); err != nil {
			t.Fatalf("NotifyReset returned error: %v", err)
		}
		if logs.Len() != 1 {
			t.Fatalf("reveal=%v: entries = %d; want 1", reveal, logs.Len())
		}
		for _, e := range logs.All() {
			for k, v := range e.ContextMap() {
				if v == secret {
					t.Errorf("reveal=%v: token logged at %s under %q", reveal, e.Level, k)
				}
			}
			if got := e.ContextMap()["account_id"]; got != ada.ID.String() {
				t.Errorf("account_id = %v", got)
			}
		}
	}
}

func TestLogResetNotifier_RevealTokenAtDebug(t *testing.T) {
	const secret = "plaintext-reset-token"

	tests := []struct {
		name   string
		reveal bool
		want   int
	}{
		{name: "hidden", reveal: false, want: 0},
		{name: "revealed", reveal: true, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			n := NewLogResetNotifier(zap.New(core), tt.reveal)

			if err := n.NotifyReset(context.Background(), ada, secret, time.Now()); err != nil {
				t.Fatalf("NotifyReset returned error: %v", err)
			}
			got := logs.FilterField(zap.String("reset_token", secret)).All()
			if len(got) != tt.want {
				t.Fatalf("token entries = %d; want %d", len(got), tt.want)
			}
			for _, e := range got {
				if e.Level != zapcore.DebugLevel {
					t.Errorf("token logged at %s; want debug", e.Level)
				}
			}
		})
	}
}
