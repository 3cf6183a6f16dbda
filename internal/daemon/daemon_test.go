package daemon_test

import (
	"context"
	"testing"

	"clipper/internal/daemon"
	"clipper/internal/ingest"
	"clipper/internal/testsupport"
	"clipper/internal/workflow"
)

type ackHandler struct{}

func (ackHandler) Consume(ctx context.Context, delivery ingest.Delivery) error {
	return delivery.Ack(ctx)
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	transport := ingest.NewDevTransport(0)
	defer transport.Close()

	manager := workflow.NewManager(cfg, transport, ackHandler{}, st, nil)
	d, err := daemon.New(cfg, st, manager, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status(context.Background())
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected running daemon, got %#v", status)
	}

	d.Stop()
	if d.Status(context.Background()).Running {
		t.Fatal("expected stopped daemon")
	}
}

func TestDaemonSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	transport := ingest.NewDevTransport(0)
	defer transport.Close()

	first, err := daemon.New(cfg, st, workflow.NewManager(cfg, transport, ackHandler{}, st, nil), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, st, workflow.NewManager(cfg, transport, ackHandler{}, st, nil), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}
