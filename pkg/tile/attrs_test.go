package tile

import "testing"

func TestAttributesValidate(t *testing.T) {
	tests := []struct {
		name    string
		attrs   Attributes
		wantErr bool
	}{
		{
			name:  "empty bag",
			attrs: Attributes{},
		},
		{
			name: "homogeneous lists",
			attrs: Attributes{
				"well":     {String("A01")},
				"exposure": {Float(12.5), Float(20)},
				"channels": {Int(0), Int(1), Int(2)},
				"flagged":  {Bool(false)},
			},
		},
		{
			name:    "empty value list",
			attrs:   Attributes{"well": {}},
			wantErr: true,
		},
		{
			name:    "mixed kinds",
			attrs:   Attributes{"exposure": {Float(12.5), Int(20)}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attrs.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValueAccessors(t *testing.T) {
	if s, ok := String("abc").AsString(); !ok || s != "abc" {
		t.Errorf("AsString = (%q, %v)", s, ok)
	}
	if i, ok := Int(7).AsInt(); !ok || i != 7 {
		t.Errorf("AsInt = (%d, %v)", i, ok)
	}
	if f, ok := Float(1.5).AsFloat(); !ok || f != 1.5 {
		t.Errorf("AsFloat = (%v, %v)", f, ok)
	}
	if b, ok := Bool(true).AsBool(); !ok || !b {
		t.Errorf("AsBool = (%v, %v)", b, ok)
	}
	if _, ok := Int(7).AsString(); ok {
		t.Error("AsString on an int value should report false")
	}
	if got := KindFloat.String(); got != "float" {
		t.Errorf("KindFloat.String() = %q", got)
	}
}
