package extract

import (
	"encoding/json"
	"testing"
)

func TestValidateRecordJSON(t *testing.T) {
	t.Parallel()

	schema := BuildCardJSONSchema()

	t.Run("extracted record validates", func(t *testing.T) {
		t.Parallel()
		e := NewExtractor(Config{})
		rec, err := e.Extract(sampleCard)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := ValidateRecordJSON(schema, b); err != nil {
			t.Errorf("record should validate: %v", err)
		}
	})

	t.Run("all-sentinel record validates", func(t *testing.T) {
		t.Parallel()
		e := NewExtractor(Config{})
		rec, err := e.Extract("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, _ := json.Marshal(rec)
		if err := ValidateRecordJSON(schema, b); err != nil {
			t.Errorf("sentinel record should validate: %v", err)
		}
	})

	t.Run("missing key is rejected", func(t *testing.T) {
		t.Parallel()
		err := ValidateRecordJSON(schema, []byte(`{"name":"Jane Doe"}`))
		if err == nil {
			t.Error("expected a validation error for a partial record")
		}
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		t.Parallel()
		doc := []byte(`{"name":"a","job_title":"a","company":"a","email":"a","phone":"a","address":"a","website":"a","extra":"x"}`)
		if err := ValidateRecordJSON(schema, doc); err == nil {
			t.Error("expected a validation error for an unknown key")
		}
	})
}
