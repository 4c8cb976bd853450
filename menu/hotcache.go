package menu

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"cafe/common"
)

const shardCount = 16

// HotDecisions remembers recent admission results per relative path. A
// decision depends only on the path and the immutable config. Each shard is
// an lru.Cache, which does its own locking.
type HotDecisions struct {
	shards [shardCount]*lru.Cache[string, bool]
}

// NewHotDecisions returns nil when size is not positive, which disables caching.
func NewHotDecisions(size int) *HotDecisions {
	if size <= 0 {
		return nil
	}

	per := size / shardCount
	if per < 1 {
		per = 1
	}

	h := &HotDecisions{}
	for i := range h.shards {
		c, err := lru.New[string, bool](per)
		common.Success(err)
		h.shards[i] = c
	}
	return h
}

func (h *HotDecisions) getShard(path string) *lru.Cache[string, bool] {
	return h.shards[common.Hash64([]byte(path))%shardCount]
}

func (h *HotDecisions) Get(path string) (servable bool, ok bool) {
	if h == nil {
		return false, false
	}
	return h.getShard(path).Get(path)
}

func (h *HotDecisions) Add(path string, servable bool) {
	if h == nil {
		return
	}
	h.getShard(path).Add(path, servable)
}

func (h *HotDecisions) Len() int {
	if h == nil {
		return 0
	}
	n := 0
	for _, s := range h.shards {
		n += s.Len()
	}
	return n
}

func (h *HotDecisions) Purge() {
	if h == nil {
		return
	}
	for _, s := range h.shards {
		s.Purge()
	}
}
