package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		filter  Filter
		wantErr string
	}{
		{name: "nil predicate", filter: Filter{}},
		{name: "document", filter: All(DocumentIs{DocumentID: "d"})},
		{name: "empty document", filter: All(DocumentIs{}), wantErr: "document id"},
		{name: "empty family", filter: All(FamilyIs{}), wantErr: "family id"},
		{name: "unknown kind", filter: All(KindIs{Kind: "paragraph"}), wantErr: "paragraph"},
		{name: "empty entity type", filter: All(EntityTypeIs{}), wantErr: "entity type"},
		{name: "empty text", filter: All(TextContains{}), wantErr: "text"},
		{name: "empty id in set", filter: All(IDIn{IDs: []string{"a", ""}}), wantErr: "empty id"},
		{name: "nil child", filter: Filter{Where: And{Predicates: []Predicate{nil}}}, wantErr: "and[0]"},
		{
			name:    "nested invalid",
			filter:  Filter{Where: And{Predicates: []Predicate{And{Predicates: []Predicate{DocumentIs{}}}}}},
			wantErr: "document id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.filter)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFilter)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCompile_RejectsInvalidFilter(t *testing.T) {
	_, _, err := Compile(All(DocumentIs{}), Cursor{})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
