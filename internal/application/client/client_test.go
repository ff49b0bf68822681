package client

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/shiptrack/internal/domain/client"
	"github.com/xiebiao/shiptrack/internal/domain/client/clienttest"
	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
	"github.com/xiebiao/shiptrack/pkg/metrics"
)

var defaultSettings = Settings{PrefixRetryAttempts: 3}

// allCandidates base的35个候选前缀
func allCandidates(base string) []string {
	out := []string{base}
	for n := 2; n <= 9; n++ {
		out = append(out, fmt.Sprintf("%s%d", base, n))
	}
	for l := 'A'; l <= 'Z'; l++ {
		out = append(out, base+string(l))
	}
	return out
}

func TestCreateClient_AutoPrefix(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	repo.Seed("ITP")
	uc := NewCreateClientUseCase(repo, client.NewAllocator(repo), defaultSettings, zap.NewNop())

	resp, err := uc.Execute(context.Background(), CreateClientRequest{Name: "  IT Piezas ", Email: "ops@itp.mx"})
	require.NoError(t, err)

	assert.Equal(t, "IT Piezas", resp.Name)
	assert.Equal(t, "ITP2", resp.Prefix)
	assert.Zero(t, resp.LastSequence)
	assert.Empty(t, resp.LastTrackingCode)
	require.NotNil(t, resp.Allocation)
	assert.Equal(t, "numeric", resp.Allocation.Phase)
	assert.False(t, resp.Allocation.Exhausted)

	stored, ok := repo.Get(resp.ID)
	require.True(t, ok)
	assert.Equal(t, "ITP2", stored.Prefix)
	assert.True(t, stored.Active)
}

func TestCreateClient_NameRequired(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	uc := NewCreateClientUseCase(repo, client.NewAllocator(repo), defaultSettings, zap.NewNop())

	_, err := uc.Execute(context.Background(), CreateClientRequest{Name: "   "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}

// TestCreateClient_AutoPrefixRace 预检通过后前缀被抢占,重新分配下一个候选
func TestCreateClient_AutoPrefixRace(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	raced := false
	repo.BeforeWrite = func(prefix string) {
		if !raced {
			raced = true
			repo.Seed(prefix)
		}
	}
	uc := NewCreateClientUseCase(repo, client.NewAllocator(repo), defaultSettings, zap.NewNop())

	metrics.InitMetrics()
	conflicts := testutil.ToFloat64(metrics.PrefixConflictsTotal)

	resp, err := uc.Execute(context.Background(), CreateClientRequest{Name: "IT Piezas"})
	require.NoError(t, err)
	assert.Equal(t, "ITP2", resp.Prefix)
	assert.Equal(t, conflicts+1, testutil.ToFloat64(metrics.PrefixConflictsTotal))
}

func TestCreateClient_AutoPrefixRetriesExhausted(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	repo.BeforeWrite = func(prefix string) { repo.Seed(prefix) }
	uc := NewCreateClientUseCase(repo, client.NewAllocator(repo), Settings{PrefixRetryAttempts: 2}, zap.NewNop())

	_, err := uc.Execute(context.Background(), CreateClientRequest{Name: "IT Piezas"})
	assert.ErrorIs(t, err, client.ErrPrefixUnavailable)

	// 被抢占的ITP、ITP2之外没有写入任何客户
	_, ok := repo.Get(3)
	assert.False(t, ok)
}

func TestCreateClient_ExhaustedFallback(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	repo.Seed(allCandidates("ITP")...)
	clock := func() time.Time { return time.UnixMilli(1_700_000_000_007) }
	allocator := client.NewAllocator(repo, client.WithClock(clock))

	core, logs := observer.New(zapcore.WarnLevel)
	uc := NewCreateClientUseCase(repo, allocator, defaultSettings, zap.New(core))

	metrics.InitMetrics()
	exhausted := testutil.ToFloat64(metrics.PrefixAllocationExhaustedTotal)

	resp, err := uc.Execute(context.Background(), CreateClientRequest{Name: "IT Piezas"})
	require.NoError(t, err)
	assert.Equal(t, "ITP007", resp.Prefix)
	assert.True(t, resp.Allocation.Exhausted)
	assert.Equal(t, exhausted+1, testutil.ToFloat64(metrics.PrefixAllocationExhaustedTotal))
	assert.Equal(t, 1, logs.FilterMessage("prefix candidates exhausted, using timestamp fallback").Len())
}

func TestCreateClient_ExhaustedFailPolicy(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	repo.Seed(allCandidates("ITP")...)
	allocator := client.NewAllocator(repo, client.WithExhaustionPolicy(client.ExhaustionFail))
	uc := NewCreateClientUseCase(repo, allocator, defaultSettings, zap.NewNop())

	_, err := uc.Execute(context.Background(), CreateClientRequest{Name: "IT Piezas"})
	assert.ErrorIs(t, err, client.ErrAllocationExhausted)
}

func TestCreateClient_ManualPrefix(t *testing.T) {
	tests := []struct {
		name    string
		seed    []string
		prefix  string
		want    string
		wantErr error
		wantMsg string
	}{
		{name: "规范化后写入", prefix: " itp9 ", want: "ITP9"},
		{name: "已被占用", seed: []string{"ITP"}, prefix: "itp", wantErr: client.ErrPrefixUnavailable, wantMsg: "prefix already in use"},
		{name: "太短", prefix: "I", wantErr: client.ErrInvalidPrefixFormat, wantMsg: "must be at least 2 characters"},
		{name: "只有空白", prefix: "   ", wantErr: client.ErrInvalidPrefixFormat, wantMsg: "must be at least 2 characters"},
		{name: "非法字符", prefix: "ABC-123", wantErr: client.ErrInvalidPrefixFormat, wantMsg: "must contain only uppercase letters and numbers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := clienttest.NewMemoryRepository()
			repo.Seed(tt.seed...)
			uc := NewCreateClientUseCase(repo, client.NewAllocator(repo), defaultSettings, zap.NewNop())

			resp, err := uc.Execute(context.Background(), CreateClientRequest{Name: "IT Piezas", Prefix: tt.prefix})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantMsg, apperrors.GetAppError(err).Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Prefix)
			assert.Nil(t, resp.Allocation)
		})
	}
}

func TestCreateClient_ManualPrefixRace(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	repo.BeforeWrite = func(prefix string) { repo.Seed(prefix) }
	uc := NewCreateClientUseCase(repo, client.NewAllocator(repo), defaultSettings, zap.NewNop())

	_, err := uc.Execute(context.Background(), CreateClientRequest{Name: "IT Piezas", Prefix: "ITP"})
	assert.ErrorIs(t, err, client.ErrPrefixUnavailable)
}

func TestGetClient(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	id := repo.SeedClient(client.Client{Name: "IT Piezas", Prefix: "ITP", LastSequence: 12, Active: true})
	uc := NewGetClientUseCase(repo)

	resp, err := uc.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ITP-00012", resp.LastTrackingCode)

	_, err = uc.Execute(context.Background(), id+1)
	assert.ErrorIs(t, err, client.ErrClientNotFound)
}

func TestUpdatePrefix(t *testing.T) {
	t.Run("相同前缀不做任何检查", func(t *testing.T) {
		repo := clienttest.NewMemoryRepository()
		id := repo.Seed("ITP")
		uc := NewUpdatePrefixUseCase(repo, client.NewAllocator(repo), zap.NewNop())

		resp, err := uc.Execute(context.Background(), id, "itp")
		require.NoError(t, err)
		assert.Equal(t, "ITP", resp.Prefix)
		assert.Zero(t, repo.CountCalls)
	})

	t.Run("修改为可用前缀,序号延续", func(t *testing.T) {
		repo := clienttest.NewMemoryRepository()
		id := repo.SeedClient(client.Client{Name: "IT Piezas", Prefix: "ITP", LastSequence: 5, Active: true})
		allocator := client.NewAllocator(repo)
		uc := NewUpdatePrefixUseCase(repo, allocator, zap.NewNop())

		resp, err := uc.Execute(context.Background(), id, "itx")
		require.NoError(t, err)
		assert.Equal(t, "ITX", resp.Prefix)
		assert.Equal(t, "ITX-00005", resp.LastTrackingCode)

		code, err := allocator.NextTrackingCode(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "ITX-00006", code)
	})

	t.Run("错误", func(t *testing.T) {
		repo := clienttest.NewMemoryRepository()
		repo.Seed("ACM")
		id := repo.Seed("ITP")
		uc := NewUpdatePrefixUseCase(repo, client.NewAllocator(repo), zap.NewNop())
		ctx := context.Background()

		_, err := uc.Execute(ctx, id, "acm")
		assert.ErrorIs(t, err, client.ErrPrefixUnavailable)

		_, err = uc.Execute(ctx, id, "A")
		assert.ErrorIs(t, err, client.ErrInvalidPrefixFormat)

		_, err = uc.Execute(ctx, 404, "NEW")
		assert.ErrorIs(t, err, client.ErrClientNotFound)

		stored, _ := repo.Get(id)
		assert.Equal(t, "ITP", stored.Prefix)
	})

	t.Run("写入时被抢占", func(t *testing.T) {
		repo := clienttest.NewMemoryRepository()
		id := repo.Seed("ITP")
		repo.BeforeWrite = func(prefix string) { repo.Seed(prefix) }
		uc := NewUpdatePrefixUseCase(repo, client.NewAllocator(repo), zap.NewNop())

		_, err := uc.Execute(context.Background(), id, "NEW")
		assert.ErrorIs(t, err, client.ErrPrefixUnavailable)
	})
}

// TestUpdatePrefix_IssuedPrefixStaysReserved 签发过追踪号的旧前缀不能被其他客户拿走
func TestUpdatePrefix_IssuedPrefixStaysReserved(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	allocator := client.NewAllocator(repo)
	create := NewCreateClientUseCase(repo, allocator, defaultSettings, zap.NewNop())
	update := NewUpdatePrefixUseCase(repo, allocator, zap.NewNop())
	issue := NewIssueTrackingCodeUseCase(allocator, zap.NewNop())
	ctx := context.Background()

	a, err := create.Execute(ctx, CreateClientRequest{Name: "IT Piezas", Prefix: "ITP"})
	require.NoError(t, err)
	first, err := issue.Execute(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "ITP-00001", first.TrackingCode)

	_, err = update.Execute(ctx, a.ID, "XYZ")
	require.NoError(t, err)
	owner, ok := repo.RetiredBy("ITP")
	require.True(t, ok)
	assert.Equal(t, a.ID, owner)

	// 手工与自动两种方式都拿不到ITP
	_, err = create.Execute(ctx, CreateClientRequest{Name: "Other", Prefix: "itp"})
	assert.ErrorIs(t, err, client.ErrPrefixUnavailable)

	b, err := create.Execute(ctx, CreateClientRequest{Name: "IT Piezas"})
	require.NoError(t, err)
	assert.Equal(t, "ITP2", b.Prefix)

	_, err = update.Execute(ctx, b.ID, "ITP")
	assert.ErrorIs(t, err, client.ErrPrefixUnavailable)

	// 原客户可以换回,序号继续递增
	back, err := update.Execute(ctx, a.ID, "ITP")
	require.NoError(t, err)
	assert.Equal(t, "ITP", back.Prefix)
	next, err := issue.Execute(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "ITP-00002", next.TrackingCode)
}

// TestUpdatePrefix_UnusedPrefixIsReleased 没有签发过追踪号的旧前缀直接释放
func TestUpdatePrefix_UnusedPrefixIsReleased(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	allocator := client.NewAllocator(repo)
	id := repo.Seed("ITP")
	update := NewUpdatePrefixUseCase(repo, allocator, zap.NewNop())

	_, err := update.Execute(context.Background(), id, "XYZ")
	require.NoError(t, err)

	_, retired := repo.RetiredBy("ITP")
	assert.False(t, retired)
	ok, err := allocator.IsPrefixAvailable(context.Background(), "ITP")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrefixQuery_Suggest(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	repo.Seed("ITP")
	uc := NewPrefixQueryUseCase(client.NewAllocator(repo))

	s, err := uc.Suggest(context.Background(), "IT Piezas")
	require.NoError(t, err)
	assert.Equal(t, &PrefixSuggestion{Name: "IT Piezas", BasePrefix: "ITP", Prefix: "ITP2", Phase: "numeric"}, s)

	_, err = uc.Suggest(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}

func TestPrefixQuery_Check(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	owner := repo.Seed("ITP")
	uc := NewPrefixQueryUseCase(client.NewAllocator(repo))
	ctx := context.Background()

	tests := []struct {
		name      string
		prefix    string
		excludeID uint
		want      PrefixCheck
	}{
		{"可用", "it", 0, PrefixCheck{Prefix: "IT", Valid: true, Available: true}},
		{"已占用", "itp", 0, PrefixCheck{Prefix: "ITP", Valid: true, Error: "prefix already in use"}},
		{"编辑时排除自身", "ITP", owner, PrefixCheck{Prefix: "ITP", Valid: true, Available: true}},
		{"格式错误", "A-1", 0, PrefixCheck{Prefix: "A-1", Error: "must contain only uppercase letters and numbers"}},
		{"为空", "", 0, PrefixCheck{Error: "prefix is required"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uc.Check(ctx, tt.prefix, tt.excludeID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestIssueTrackingCode(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	id := repo.Seed("ITP")
	uc := NewIssueTrackingCodeUseCase(client.NewAllocator(repo), zap.NewNop())

	metrics.InitMetrics()
	issued := testutil.ToFloat64(metrics.TrackingCodesIssuedTotal)
	failed := testutil.ToFloat64(metrics.TrackingCodesFailedTotal)

	resp, err := uc.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, &TrackingCodeResponse{ClientID: id, TrackingCode: "ITP-00001", Sequence: 1}, resp)

	resp, err = uc.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ITP-00002", resp.TrackingCode)

	_, err = uc.Execute(context.Background(), 999)
	assert.ErrorIs(t, err, client.ErrClientNotFound)

	assert.Equal(t, issued+2, testutil.ToFloat64(metrics.TrackingCodesIssuedTotal))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.TrackingCodesFailedTotal))
}

// TestIssueTrackingCode_LegacyPrefix 历史前缀不符合当前格式时照常签发,不留空号
func TestIssueTrackingCode_LegacyPrefix(t *testing.T) {
	repo := clienttest.NewMemoryRepository()
	id := repo.Seed("IT-P")
	uc := NewIssueTrackingCodeUseCase(client.NewAllocator(repo), zap.NewNop())

	resp, err := uc.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "IT-P-00001", resp.TrackingCode)
	assert.Equal(t, int64(1), resp.Sequence)

	resp, err = uc.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Sequence)

	stored, _ := repo.Get(id)
	assert.Equal(t, int64(2), stored.LastSequence)
}

func TestBackfillPrefixes(t *testing.T) {
	newRepo := func() *clienttest.MemoryRepository {
		repo := clienttest.NewMemoryRepository()
		repo.Seed("ITP")
		repo.SeedClient(client.Client{Name: "IT Piezas", Active: true})
		repo.SeedClient(client.Client{Name: "IT Piezas", Active: true})
		repo.SeedClient(client.Client{Name: "", Active: true})
		return repo
	}

	t.Run("按ID顺序分配", func(t *testing.T) {
		repo := newRepo()
		uc := NewBackfillPrefixesUseCase(repo, client.NewAllocator(repo), defaultSettings, zap.NewNop())

		result, err := uc.Execute(context.Background(), BackfillRequest{})
		require.NoError(t, err)
		require.Len(t, result.Assigned, 3)
		assert.Empty(t, result.Failed)

		var prefixes []string
		for _, item := range result.Assigned {
			prefixes = append(prefixes, item.Prefix)
		}
		assert.Equal(t, []string{"ITP2", "ITP3", "CLI"}, prefixes)

		stored, _ := repo.Get(result.Assigned[1].ClientID)
		assert.Equal(t, "ITP3", stored.Prefix)
	})

	t.Run("limit与dry-run", func(t *testing.T) {
		repo := newRepo()
		uc := NewBackfillPrefixesUseCase(repo, client.NewAllocator(repo), defaultSettings, zap.NewNop())

		result, err := uc.Execute(context.Background(), BackfillRequest{Limit: 2, DryRun: true})
		require.NoError(t, err)
		assert.True(t, result.DryRun)
		require.Len(t, result.Assigned, 2)

		pending, err := repo.ListWithoutPrefix(context.Background(), 0)
		require.NoError(t, err)
		assert.Len(t, pending, 3, "dry-run不写库")
	})

	t.Run("单个失败不影响其他客户", func(t *testing.T) {
		repo := clienttest.NewMemoryRepository()
		repo.Seed(allCandidates("ITP")...)
		repo.SeedClient(client.Client{Name: "IT Piezas", Active: true})
		acme := repo.SeedClient(client.Client{Name: "Acme", Active: true})
		allocator := client.NewAllocator(repo, client.WithExhaustionPolicy(client.ExhaustionFail))
		uc := NewBackfillPrefixesUseCase(repo, allocator, defaultSettings, zap.NewNop())

		result, err := uc.Execute(context.Background(), BackfillRequest{})
		require.NoError(t, err)
		require.Len(t, result.Failed, 1)
		assert.Contains(t, result.Failed[0].Error, "no candidate prefix available")
		require.Len(t, result.Assigned, 1)
		assert.Equal(t, acme, result.Assigned[0].ClientID)
		assert.Equal(t, "ACM", result.Assigned[0].Prefix)
	})
}
