package mcp

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvachev/trustgate/internal/errclass"
)

func TestNewWithDefaultPolicy(t *testing.T) {
	srv, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, srv)
	assert.NotNil(t, srv.policy)
	assert.True(t, srv.policy.StrictURLValidation)
}

func TestErrKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errclass.ErrSchema.WithMessage("bad field"), "E_SCHEMA"},
		{errclass.ErrSecurity.WithMessage("jail escape"), "E_SECURITY"},
		{errclass.ErrIntegrity.WithMessage("digest mismatch"), "E_INTEGRITY"},
		{errclass.ErrEvaluator.WithMessage("missing binary"), "E_EVALUATOR"},
		{fmt.Errorf("wrapped: %w", errclass.ErrSecurity.WithMessage("symlink")), "E_SECURITY"},
		{fmt.Errorf("plain failure"), ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, errKind(tc.err), "for %v", tc.err)
	}
}
