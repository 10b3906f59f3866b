package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopDecide(t *testing.T) {
	d, err := Noop{}.Decide(&Context{})
	assert.NoError(t, err)
	assert.True(t, d.Empty())
}
