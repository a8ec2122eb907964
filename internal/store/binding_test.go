package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/hand"
)

func TestBindingRepository_CreateGet(t *testing.T) {
	repo := newTestStore(t).Bindings()

	b := binding.Binding{
		ID:         "b1",
		Gesture:    "swipe_left",
		Hand:       hand.Right,
		Action:     binding.Scroll("left"),
		Context:    []string{"slides", "reader"},
		CooldownMs: 400,
	}
	created, err := repo.Create(b)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := repo.Get("b1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Gesture != "swipe_left" || got.Hand != hand.Right || got.CooldownMs != 400 {
		t.Errorf("unexpected binding: %+v", got.Binding)
	}
	if got.Action.Type != binding.ActionScroll || got.Action.Direction != "left" {
		t.Errorf("unexpected action: %v", got.Action)
	}
	if len(got.Context) != 2 || got.Context[1] != "reader" {
		t.Errorf("unexpected context: %v", got.Context)
	}
}

func TestBindingRepository_CustomPayloadRoundTrip(t *testing.T) {
	repo := newTestStore(t).Bindings()

	payload := json.RawMessage(`{"key":"s","modifiers":["cmd"]}`)
	if _, err := repo.Create(binding.Binding{ID: "c", Gesture: "ok_sign", Action: binding.Custom(payload)}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := repo.Get("c")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	var want, have map[string]any
	json.Unmarshal(payload, &want)
	json.Unmarshal(got.Action.Payload, &have)
	if have["key"] != want["key"] {
		t.Errorf("payload mismatch: %s", got.Action.Payload)
	}
	if got.Hand != "" || got.Context != nil {
		t.Errorf("expected no filters, got hand %q context %v", got.Hand, got.Context)
	}
}

func TestBindingRepository_RejectsInvalid(t *testing.T) {
	repo := newTestStore(t).Bindings()

	_, err := repo.Create(binding.Binding{ID: "x", Gesture: "fist", Action: binding.Action{Type: "FLY"}})
	if !errors.Is(err, binding.ErrInvalidBinding) {
		t.Errorf("expected ErrInvalidBinding, got %v", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected nothing stored, got %d", len(list))
	}
}

func TestBindingRepository_DuplicateID(t *testing.T) {
	repo := newTestStore(t).Bindings()

	b := binding.Binding{ID: "dup", Gesture: "fist", Action: binding.Simple(binding.ActionGrab)}
	if _, err := repo.Create(b); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := repo.Create(b); err == nil {
		t.Error("expected error for duplicate id")
	}
}

func TestBindingRepository_ListAll(t *testing.T) {
	repo := newTestStore(t).Bindings()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := repo.Create(binding.Binding{ID: id, Gesture: "fist", Action: binding.Simple(binding.ActionGrab)}); err != nil {
			t.Fatalf("Create(%s) failed: %v", id, err)
		}
	}

	all, err := repo.All()
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 bindings, got %d", len(all))
	}
	if all[0].ID != "a" || all[2].ID != "c" {
		t.Errorf("expected creation order, got %s..%s", all[0].ID, all[2].ID)
	}
}

func TestBindingRepository_Update(t *testing.T) {
	repo := newTestStore(t).Bindings()

	b := binding.Binding{ID: "u", Gesture: "fist", Action: binding.Simple(binding.ActionGrab)}
	if _, err := repo.Create(b); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	b.Gesture = "open_hand"
	b.Action = binding.Simple(binding.ActionRelease)
	b.CooldownMs = 1000
	if err := repo.Update(b); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	got, err := repo.Get("u")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Gesture != "open_hand" || got.Action.Type != binding.ActionRelease || got.CooldownMs != 1000 {
		t.Errorf("update not applied: %+v", got.Binding)
	}

	b.ID = "missing"
	if err := repo.Update(b); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBindingRepository_Delete(t *testing.T) {
	repo := newTestStore(t).Bindings()

	if _, err := repo.Create(binding.Binding{ID: "d", Gesture: "fist", Action: binding.Simple(binding.ActionGrab)}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := repo.Delete("d"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := repo.Get("d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete("d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}
