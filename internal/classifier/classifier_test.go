package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dottraffic/backend/internal/logging"
	"github.com/dottraffic/backend/internal/metrics"
)

type mockProvider struct {
	completeFunc func(ctx context.Context, p Prompt) (string, error)
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(ctx context.Context, p Prompt) (string, error) {
	return m.completeFunc(ctx, p)
}

func TestService_Classify_OK(t *testing.T) {
	var got Prompt
	svc := New(&mockProvider{completeFunc: func(_ context.Context, p Prompt) (string, error) {
		got = p
		return "```json\n{\"route\":\"triage\"}\n```", nil
	}}, logging.Discard())

	in := Instructions{TaskTraffic: "route it"}.Prompt(TaskTraffic, "Subject: hi")
	res, err := svc.Classify(context.Background(), in)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.String("route") != "triage" {
		t.Errorf("expected route triage, got %v", res["route"])
	}
	if got.Instruction != "route it" || got.Text != "Subject: hi" || got.MaxTokens != 1000 || got.Temperature != 0.1 {
		t.Errorf("prompt not passed through: %+v", got)
	}
}

func TestService_Classify_ProviderFailure(t *testing.T) {
	boom := errors.New("connection refused")
	svc := New(&mockProvider{completeFunc: func(context.Context, Prompt) (string, error) {
		return "", boom
	}}, logging.Discard())

	_, err := svc.Classify(context.Background(), Prompt{Task: TaskTriage})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected cause to be kept, got %v", err)
	}
}

func TestService_Classify_Malformed(t *testing.T) {
	svc := New(&mockProvider{completeFunc: func(context.Context, Prompt) (string, error) {
		return "I could not decide.", nil
	}}, logging.Discard())

	_, err := svc.Classify(context.Background(), Prompt{Task: TaskTraffic})
	var mre *MalformedResponseError
	if !errors.As(err, &mre) {
		t.Fatalf("expected *MalformedResponseError, got %v", err)
	}
	if mre.Raw != "I could not decide." {
		t.Errorf("unexpected raw %q", mre.Raw)
	}
}

func TestService_Classify_OffSchemaIsReturned(t *testing.T) {
	svc := New(&mockProvider{completeFunc: func(context.Context, Prompt) (string, error) {
		return `{"route":7,"jobNumber":"TOW 001"}`, nil
	}}, logging.Discard())

	before := testutil.ToFloat64(metrics.ClassifierRequestsTotal.WithLabelValues("mock", string(TaskTraffic), "off_schema"))
	res, err := svc.Classify(context.Background(), Prompt{Task: TaskTraffic})
	if err != nil {
		t.Fatalf("expected parsed decision, got %v", err)
	}
	if res.String("jobNumber") != "TOW 001" {
		t.Errorf("unexpected result %v", res)
	}
	after := testutil.ToFloat64(metrics.ClassifierRequestsTotal.WithLabelValues("mock", string(TaskTraffic), "off_schema"))
	if after != before+1 {
		t.Errorf("expected off_schema counter to grow by 1, got %v -> %v", before, after)
	}
}

func TestService_Classify_Timeout(t *testing.T) {
	svc := New(&mockProvider{completeFunc: func(ctx context.Context, _ Prompt) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}, logging.Discard(), WithTimeout(20*time.Millisecond))

	_, err := svc.Classify(context.Background(), Prompt{Task: TaskTraffic})
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected unavailable deadline error, got %v", err)
	}
}
