package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepository(t *testing.T) {
	tests := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{in: "microsoft/vscode", want: Ref{"microsoft", "vscode", "main"}},
		{in: "microsoft/vscode/develop", want: Ref{"microsoft", "vscode", "develop"}},
		{in: "/microsoft/vscode/main", want: Ref{"microsoft", "vscode", "main"}},
		{in: " smallnest/reviewgraph/ ", want: Ref{"smallnest", "reviewgraph", "main"}},
		{in: "vscode", wantErr: true},
		{in: "", wantErr: true},
		{in: "a//b", wantErr: true},
		{in: "a/b/c/d", wantErr: true},
		{in: "../etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepository(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRepository)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRef(t *testing.T) {
	ref := Ref{Owner: "o", Repo: "r", Branch: "b"}
	assert.Equal(t, "o/r/b", ref.String())
	assert.Equal(t, "https://github.com/o/r.git", ref.URL())
}
