package service

import (
	"errors"
	"reflect"
	"testing"
)

// recorder logs lifecycle calls across services in order
type recorder struct {
	calls []string
}

type fakeService struct {
	name     string
	deps     []string
	rec      *recorder
	initErr  error
	startErr error
	resource any
	gotArgs  []any
}

func (f *fakeService) Name() string           { return f.name }
func (f *fakeService) Dependencies() []string { return f.deps }

func (f *fakeService) Init(args ...any) error {
	f.rec.calls = append(f.rec.calls, "init:"+f.name)
	f.gotArgs = args
	return f.initErr
}

func (f *fakeService) Start() error {
	f.rec.calls = append(f.rec.calls, "start:"+f.name)
	return f.startErr
}

func (f *fakeService) Stop() error {
	f.rec.calls = append(f.rec.calls, "stop:"+f.name)
	return nil
}

func (f *fakeService) Contribute(publish ResourcePublisher) {
	if f.resource != nil {
		publish(f.resource)
	}
}

func register(t *testing.T, h *Hub, svcs ...*fakeService) {
	t.Helper()
	for _, s := range svcs {
		if err := h.Register(s); err != nil {
			t.Fatalf("Register %s failed: %v", s.name, err)
		}
	}
}

// TestHubDependencyOrder verifies dependencies init and start first, stop last
func TestHubDependencyOrder(t *testing.T) {
	rec := &recorder{}
	h := NewHub()
	register(t, h,
		&fakeService{name: "network", deps: []string{"instrument"}, rec: rec},
		&fakeService{name: "instrument", deps: []string{"audio", "presets"}, rec: rec},
		&fakeService{name: "audio", rec: rec},
		&fakeService{name: "presets", rec: rec},
	)

	if err := h.InitAll(nil); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}
	if err := h.StartAll(); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	h.StopAll()

	want := []string{
		"init:audio", "init:presets", "init:instrument", "init:network",
		"start:audio", "start:presets", "start:instrument", "start:network",
		"stop:network", "stop:instrument", "stop:presets", "stop:audio",
	}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("Expected %v, got %v", want, rec.calls)
	}
	if got := h.Order(); !reflect.DeepEqual(got, []string{"audio", "presets", "instrument", "network"}) {
		t.Errorf("Unexpected init order %v", got)
	}
}

// TestHubResources verifies contributed resources reach later services
func TestHubResources(t *testing.T) {
	rec := &recorder{}
	h := NewHub()
	producer := &fakeService{name: "audio", rec: rec, resource: 42}
	consumer := &fakeService{name: "network", deps: []string{"audio"}, rec: rec}
	register(t, h, consumer, producer)

	if err := h.InitAll(map[string][]any{"network": {"cfg"}}); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}

	if !reflect.DeepEqual(consumer.gotArgs, []any{"cfg", 42}) {
		t.Errorf("Expected own args then resources, got %v", consumer.gotArgs)
	}
	if len(producer.gotArgs) != 0 {
		t.Errorf("Expected producer to receive no args, got %v", producer.gotArgs)
	}

	v, ok := Resource[int](h)
	if !ok || v != 42 {
		t.Errorf("Expected resource 42, got %v %v", v, ok)
	}
	if _, ok := Resource[string](h); ok {
		t.Error("Expected no string resource")
	}
}

// TestHubInitRollback verifies initialized services are stopped on failure
func TestHubInitRollback(t *testing.T) {
	rec := &recorder{}
	h := NewHub()
	boom := errors.New("boom")
	register(t, h,
		&fakeService{name: "a", rec: rec},
		&fakeService{name: "b", deps: []string{"a"}, rec: rec, initErr: boom},
	)

	err := h.InitAll(nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped boom, got %v", err)
	}
	want := []string{"init:a", "init:b", "stop:a"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("Expected %v, got %v", want, rec.calls)
	}
}

// TestHubStartRollback verifies started services are stopped on failure
func TestHubStartRollback(t *testing.T) {
	rec := &recorder{}
	h := NewHub()
	boom := errors.New("boom")
	register(t, h,
		&fakeService{name: "a", rec: rec},
		&fakeService{name: "b", rec: rec},
		&fakeService{name: "c", deps: []string{"a", "b"}, rec: rec, startErr: boom},
	)

	if err := h.InitAll(nil); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}
	rec.calls = nil

	if err := h.StartAll(); !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped boom, got %v", err)
	}
	want := []string{"start:a", "start:b", "start:c", "stop:b", "stop:a"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("Expected %v, got %v", want, rec.calls)
	}

	// Nothing left to stop
	rec.calls = nil
	h.StopAll()
	if len(rec.calls) != 0 {
		t.Errorf("Expected no stops after rollback, got %v", rec.calls)
	}
}

// TestHubErrors verifies registration and graph errors
func TestHubErrors(t *testing.T) {
	rec := &recorder{}

	h := NewHub()
	register(t, h, &fakeService{name: "a", rec: rec})
	if err := h.Register(&fakeService{name: "a", rec: rec}); !errors.Is(err, ErrDuplicateService) {
		t.Errorf("Expected ErrDuplicateService, got %v", err)
	}

	h = NewHub()
	register(t, h, &fakeService{name: "a", deps: []string{"ghost"}, rec: rec})
	if err := h.InitAll(nil); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("Expected ErrMissingDependency, got %v", err)
	}

	h = NewHub()
	register(t, h,
		&fakeService{name: "a", deps: []string{"b"}, rec: rec},
		&fakeService{name: "b", deps: []string{"a"}, rec: rec},
	)
	if err := h.InitAll(nil); !errors.Is(err, ErrCircularDependency) {
		t.Errorf("Expected ErrCircularDependency, got %v", err)
	}

	h = NewHub()
	if err := h.StartAll(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

// TestHubGet verifies lookup helpers
func TestHubGet(t *testing.T) {
	rec := &recorder{}
	h := NewHub()
	svc := &fakeService{name: "audio", rec: rec}
	register(t, h, svc)

	if got, ok := h.Get("audio"); !ok || got != svc {
		t.Error("Expected registered service from Get")
	}
	if _, ok := h.Get("missing"); ok {
		t.Error("Expected missing service lookup to fail")
	}
	if got := MustGet[*fakeService](h, "audio"); got != svc {
		t.Error("Expected typed service from MustGet")
	}
	if names := h.Names(); !reflect.DeepEqual(names, []string{"audio"}) {
		t.Errorf("Expected [audio], got %v", names)
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for missing service")
		}
	}()
	MustGet[*fakeService](h, "missing")
}

// TestFind verifies typed argument lookup
func TestFind(t *testing.T) {
	args := []any{"x", 3, 4.5}
	if v, ok := Find[int](args); !ok || v != 3 {
		t.Errorf("Expected 3, got %v", v)
	}
	if _, ok := Find[bool](args); ok {
		t.Error("Expected no bool")
	}
}
