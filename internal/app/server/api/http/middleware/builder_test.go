package middleware

import (
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
)

func TestContainer_GetAllAndClear(t *testing.T) {
	noop := func(ctx huma.Context, next func(huma.Context)) { next(ctx) }

	c := NewContainer()
	c.Add(noop, noop)
	assert.Len(t, c.GetAllAndClear(), 2)

	c.Add(noop)
	assert.Len(t, c.GetAllAndClear(), 1)
	assert.Empty(t, c.GetAllAndClear())
}
