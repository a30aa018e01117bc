package domain

import (
	"reflect"
	"testing"
)

func TestColumnCatalog_SearchColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    []string
	}{
		{
			name:    "full layout",
			columns: []string{"id", "domain", "username", "email", "password", "fetch_date"},
			want:    []string{"domain", "username", "password"},
		},
		{
			name:    "alternate names",
			columns: []string{"id", "login", "secret"},
			want:    []string{"login", "secret"},
		},
		{
			name:    "nothing searchable",
			columns: []string{"id", "notes"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewColumnCatalog("t", tt.columns).SearchColumns()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchColumns() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColumnCatalog_OrderColumn(t *testing.T) {
	tests := []struct {
		columns []string
		want    string
	}{
		{columns: []string{"id", "created_at", "fetch_date"}, want: "fetch_date"},
		{columns: []string{"id", "date"}, want: "date"},
		{columns: []string{"domain", "id"}, want: "domain"},
		{columns: nil, want: ""},
	}

	for _, tt := range tests {
		if got := NewColumnCatalog("t", tt.columns).OrderColumn(); got != tt.want {
			t.Errorf("OrderColumn(%v) = %q, want %q", tt.columns, got, tt.want)
		}
	}
}

func TestColumnCatalog_Dedup(t *testing.T) {
	c := NewColumnCatalog("t", []string{"id", "id", "", "domain"})
	if !reflect.DeepEqual(c.Columns, []string{"id", "domain"}) {
		t.Errorf("Columns = %v", c.Columns)
	}
	if !c.Has("domain") || c.Has("missing") {
		t.Errorf("Has() misbehaves")
	}
}
