package llms

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchQueries struct {
	Queries []string `json:"queries" description:"search queries"`
}

func (q *searchQueries) Validate() error {
	if len(q.Queries) > 3 {
		return fmt.Errorf("got %d queries, at most 3 allowed", len(q.Queries))
	}
	return nil
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "plain", raw: `{"queries":["a","b"]}`, want: []string{"a", "b"}},
		{name: "empty list", raw: `{"queries":[]}`, want: []string{}},
		{name: "fenced", raw: "```json\n{\"queries\":[\"go generics\"]}\n```", want: []string{"go generics"}},
		{name: "missing field", raw: `{}`, wantErr: true},
		{name: "null field", raw: `{"queries":null}`, wantErr: true},
		{name: "unknown field", raw: `{"queries":[],"extra":1}`, wantErr: true},
		{name: "wrong type", raw: `{"queries":"a"}`, wantErr: true},
		{name: "too many", raw: `{"queries":["1","2","3","4"]}`, wantErr: true},
		{name: "not json", raw: `sure, here are queries`, wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "trailing", raw: `{"queries":[]} {"queries":[]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[searchQueries](tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrSchemaMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Queries)
		})
	}
}

func TestSchemaFor(t *testing.T) {
	schema, err := SchemaFor[searchQueries]("queries", "research queries")
	require.NoError(t, err)
	assert.Equal(t, "queries", schema.Name)
	assert.Contains(t, schema.Definition.Required, "queries")
	assert.Contains(t, schema.JSON(), `"queries"`)
}

type scriptedClient struct {
	texts  []string
	errs   []error
	calls  int
	schema *Schema
}

func (c *scriptedClient) next() (string, error) {
	i := c.calls
	c.calls++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(c.texts) {
		return c.texts[i], nil
	}
	return "", nil
}

func (c *scriptedClient) Generate(context.Context, []Message) (string, error) {
	return c.next()
}

func (c *scriptedClient) GenerateStructured(_ context.Context, _ []Message, schema *Schema) (string, error) {
	c.schema = schema
	return c.next()
}

func TestStructured(t *testing.T) {
	c := &scriptedClient{texts: []string{`{"queries":["x"]}`}}
	out, err := Structured[searchQueries](context.Background(), c, []Message{User("task")}, "queries", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out.Queries)
	require.NotNil(t, c.schema)
	assert.Equal(t, "queries", c.schema.Name)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&APIError{StatusCode: 429}))
	assert.True(t, IsRetryable(&APIError{StatusCode: 503}))
	assert.True(t, IsRetryable(errors.New("connection reset")))
	assert.False(t, IsRetryable(&APIError{StatusCode: 401}))
	assert.False(t, IsRetryable(fmt.Errorf("decode: %w", ErrSchemaMismatch)))
	assert.False(t, IsRetryable(ErrEmptyResponse))
	assert.False(t, IsRetryable(context.Canceled))
}
