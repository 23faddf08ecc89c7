package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/utils/ptr"
)

func TestPage(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}

	all := Page(rows, ListReqQuery{})
	assert.Equal(t, rows, all.Rows)
	assert.EqualValues(t, 5, all.Count)

	second := Page(rows, ListReqQuery{PageIndex: ptr.To(1), PageSize: ptr.To(2)})
	assert.Equal(t, []int{3, 4}, second.Rows)
	assert.EqualValues(t, 5, second.Count)

	last := Page(rows, ListReqQuery{PageIndex: ptr.To(2), PageSize: ptr.To(2)})
	assert.Equal(t, []int{5}, last.Rows)

	beyond := Page(rows, ListReqQuery{PageIndex: ptr.To(9), PageSize: ptr.To(2)})
	assert.Empty(t, beyond.Rows)
}
