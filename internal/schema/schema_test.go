package schema

import "testing"

func TestDescriptor(t *testing.T) {
	ok := `{"pid":"mining","type":"mining","priority":2,"sleep_until":0,"active":true,"data":{"n":1}}`
	if err := Validate(Descriptor, []byte(ok)); err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, bad := range []string{
		`{"pid":"","type":"mining","priority":2,"active":true}`,
		`{"pid":"a","type":"mining","priority":9,"active":true}`,
		`{"pid":"a","priority":1,"active":true}`,
		`[1,2]`,
		`{"pid":`,
	} {
		if err := Validate(Descriptor, []byte(bad)); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}
}

func TestTaskRecord(t *testing.T) {
	ok := `{"name":"transfer","target_id":"c1","settings":{"target_range":1,"work_range":1,"one_shot":true},"resource":"energy","amount":5}`
	if err := Validate(TaskRecord, []byte(ok)); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := Validate(TaskRecord, []byte(`{"name":"teleport","target_id":"x","settings":{"target_range":1,"work_range":1}}`)); err == nil {
		t.Fatalf("unknown task name accepted")
	}
}

func TestAgentMemory(t *testing.T) {
	ok := `{"task":{"name":"harvest","target_id":"s1","settings":{"target_range":1,"work_range":1}},
		"path":{"steps":"3345","cursor":1,"ttl":20,"target":{"room":"W1N1","x":10,"y":10}},
		"stuck":0,"last_pos":{"room":"W1N1","x":3,"y":4}}`
	if err := Validate(AgentMemory, []byte(ok)); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := Validate(AgentMemory, []byte(`{}`)); err != nil {
		t.Fatalf("empty memory: %v", err)
	}
	bad := `{"path":{"steps":"39","cursor":0,"ttl":1,"target":{"room":"W1N1","x":1,"y":1}}}`
	if err := Validate(AgentMemory, []byte(bad)); err == nil {
		t.Fatalf("direction 9 accepted")
	}
	if err := Validate(AgentMemory, []byte(`{"task":"build"}`)); err == nil {
		t.Fatalf("non-object task accepted")
	}
	// Task records are checked on their own when the task is rebuilt.
	if err := Validate(AgentMemory, []byte(`{"task":{"name":"teleport"}}`)); err != nil {
		t.Fatalf("task contents must not fail agent memory: %v", err)
	}
}

func TestValidateValue(t *testing.T) {
	v := map[string]any{"pid": "p", "type": "t", "priority": 0, "active": false}
	if err := ValidateValue(Descriptor, v); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := Validate("nope", []byte(`{}`)); err == nil {
		t.Fatalf("unknown kind accepted")
	}
}
