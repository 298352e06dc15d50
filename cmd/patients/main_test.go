package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-records/internal/handler"
	patienthandler "github.com/jwalitptl/patient-records/internal/handler/patient"
	"github.com/jwalitptl/patient-records/internal/handler/prometheus"
	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository/memory"
	"github.com/jwalitptl/patient-records/internal/router"
	"github.com/jwalitptl/patient-records/pkg/messaging"
)

func newStore(t *testing.T, seed ...*model.Patient) *httptest.Server {
	t.Helper()
	log := zerolog.Nop()
	r := router.NewRouter(
		patienthandler.NewHandler(memory.NewPatientStore(seed...), log),
		handler.NewHandler(),
		prometheus.New(),
		router.RouterConfig{},
		log,
	)
	r.Setup()
	srv := httptest.NewServer(r.Engine())
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, srv *httptest.Server, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(append([]string{"--base-url", srv.URL + "/patients"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func seedPatients() []*model.Patient {
	return []*model.Patient{
		{ID: 1, Name: "Alice Smith", UID: "11111111111", Phone: "9000000001", Age: 34,
			Gender: model.GenderFemale, BloodGroup: model.BloodGroupOPos},
		{ID: 2, Name: "Bob Jones", UID: "22222222222", Phone: "9000000002", Age: 51,
			Gender: model.GenderMale, BloodGroup: model.BloodGroupANeg},
	}
}

func TestListCommand(t *testing.T) {
	srv := newStore(t, seedPatients()...)

	out, _, err := execute(t, srv, "", "list", "--blood-group", "O+")

	require.NoError(t, err)
	assert.Contains(t, out, "Alice Smith")
	assert.NotContains(t, out, "Bob Jones")
}

func TestAddCommand(t *testing.T) {
	srv := newStore(t, seedPatients()...)

	_, errOut, err := execute(t, srv, "", "add",
		"--name", "Jane Doe", "--uid", "12345678901", "--phone", "9876543210",
		"--age", "30", "--gender", "Female", "--blood-group", "O+")
	require.NoError(t, err)
	assert.Contains(t, errOut, "success: Patient added successfully")

	out, _, err := execute(t, srv, "", "get", "3")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Jane Doe"`)
	assert.Contains(t, out, `"createdAt"`)
}

func TestAddCommandDuplicateUID(t *testing.T) {
	srv := newStore(t, seedPatients()...)

	_, errOut, err := execute(t, srv, "", "add",
		"--name", "Jane Doe", "--uid", "11111111111", "--phone", "9876543210",
		"--age", "30", "--gender", "Female", "--blood-group", "O+")

	require.Error(t, err)
	assert.Contains(t, errOut, "warning: This UID is already registered")
	assert.Contains(t, errOut, "uid: duplicate")
}

func TestUpdateCommand(t *testing.T) {
	srv := newStore(t, seedPatients()...)

	_, errOut, err := execute(t, srv, "", "update", "2", "--age", "52")
	require.NoError(t, err)
	assert.Contains(t, errOut, "success: Patient updated successfully")

	out, _, err := execute(t, srv, "", "get", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"age": 52`)
}

func TestDeleteCommand(t *testing.T) {
	srv := newStore(t, seedPatients()...)

	_, errOut, err := execute(t, srv, "n\n", "delete", "1")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "deleted")

	_, errOut, err = execute(t, srv, "y\n", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, errOut, "success: Patient deleted successfully")

	_, errOut, err = execute(t, srv, "", "delete", "--yes", "1")
	require.Error(t, err)
	assert.Contains(t, errOut, "warning: Patient no longer exists in the database")
}

func TestExportCommand(t *testing.T) {
	srv := newStore(t, seedPatients()...)

	out, _, err := execute(t, srv, "", "export", "-o", "-")

	require.NoError(t, err)
	assert.Equal(t,
		"ID,Name,UID,Phone,Age,Gender,Blood Group\n"+
			"1,Alice Smith,11111111111,9000000001,34,Female,O+\n"+
			"2,Bob Jones,22222222222,9000000002,51,Male,A-\n",
		out)
}

func TestCheckUIDCommand(t *testing.T) {
	srv := newStore(t, seedPatients()...)

	out, _, err := execute(t, srv, "", "check-uid", "22222222222")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob Jones")

	out, _, err = execute(t, srv, "", "check-uid", "99999999999")
	require.NoError(t, err)
	assert.Contains(t, out, "is free")
}

func TestGetVanishedPatient(t *testing.T) {
	srv := newStore(t, seedPatients()...)

	_, errOut, err := execute(t, srv, "", "get", "9")

	require.Error(t, err)
	assert.Contains(t, errOut, "error: This patient record no longer exists. Please refresh the list.")
}

// memoryBroker fans published payloads out to every live subscription.
type memoryBroker struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{subs: map[string][]chan []byte{}}
}

func (b *memoryBroker) Publish(_ context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *memoryBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[channel]
		for i, c := range subs {
			if c == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (b *memoryBroker) subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

func (b *memoryBroker) Close() error { return nil }

func useBroker(t *testing.T, broker messaging.Broker) {
	t.Helper()
	t.Setenv("PATIENTS_NOTIFICATIONS_REDIS_URL", "redis://notices.test:6379/0")
	saved := dialBroker
	dialBroker = func(context.Context, string, zerolog.Logger) (messaging.Broker, error) {
		return broker, nil
	}
	t.Cleanup(func() { dialBroker = saved })
}

func TestNoticesCommandFollowsPublishedNotices(t *testing.T) {
	srv := newStore(t, seedPatients()...)
	broker := newMemoryBroker()
	useBroker(t, broker)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		var out, errOut bytes.Buffer
		root := newRootCmd(strings.NewReader(""), &out, &errOut)
		root.SetArgs([]string{"--base-url", srv.URL + "/patients", "notices", "--limit", "1"})
		err := root.ExecuteContext(context.Background())
		done <- result{out: out.String(), err: err}
	}()
	require.Eventually(t, func() bool {
		return broker.subscribers("patients.notices") == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, _, err := execute(t, srv, "", "delete", "--yes", "2")
	require.NoError(t, err)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "success: Patient deleted successfully")
	case <-time.After(2 * time.Second):
		t.Fatal("notices command did not receive the published notice")
	}
}

func TestNoticesCommandRequiresRedisURL(t *testing.T) {
	srv := newStore(t)

	_, _, err := execute(t, srv, "", "notices")

	assert.EqualError(t, err, "notifications.redis_url is not set")
}

func TestMetricsFlagDumpsStoreMetrics(t *testing.T) {
	srv := newStore(t, seedPatients()...)

	_, errOut, err := execute(t, srv, "", "--metrics", "list")

	require.NoError(t, err)
	assert.Contains(t, errOut, "# TYPE patients_store_requests_total counter")
	assert.Contains(t, errOut, "patients_store_request_duration_seconds_bucket")
}
