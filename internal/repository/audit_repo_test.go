package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go-media-share/internal/model"
)

func TestNormalizeAuditPaging(t *testing.T) {
	t.Parallel()

	q := NormalizeAuditPaging(model.AuditQuery{})
	require.Equal(t, 1, q.Page)
	require.Equal(t, defaultAuditLimit, q.Limit)

	q = NormalizeAuditPaging(model.AuditQuery{Page: 3, Limit: 1000, Action: "media.uploaded"})
	require.Equal(t, 3, q.Page)
	require.Equal(t, maxAuditLimit, q.Limit)
	require.Equal(t, "media.uploaded", q.Action)
}
