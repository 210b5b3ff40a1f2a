package catalog

import (
	"testing"

	"github.com/google/uuid"
)

func TestMarshalAttributes(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]any
		want  string
	}{
		{"nil map", nil, "{}"},
		{"empty map", map[string]any{}, "{}"},
		{"flat object", map[string]any{"warranty_months": float64(24)}, `{"warranty_months":24}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalAttributes(tt.attrs)
			if err != nil {
				t.Fatalf("marshalAttributes() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("marshalAttributes() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToPgText(t *testing.T) {
	if v := toPgText(""); v.Valid {
		t.Error("empty string should map to NULL")
	}
	if v := toPgText("gearless"); !v.Valid || v.String != "gearless" {
		t.Errorf("toPgText(gearless) = %+v", v)
	}
}

func TestToPgUUID(t *testing.T) {
	if v := toPgUUID(nil); v.Valid {
		t.Error("nil id should map to NULL")
	}
	id := uuid.New()
	v := toPgUUID(&id)
	if !v.Valid || uuid.UUID(v.Bytes) != id {
		t.Errorf("toPgUUID(%s) = %+v", id, v)
	}
}
