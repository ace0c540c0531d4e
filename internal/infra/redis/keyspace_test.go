package redis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyspaceStableShard(t *testing.T) {
	ks := NewKeyspace([]string{"tienda-3", "tienda-1", "tienda-2", "tienda-1"}, 50)
	assert.Equal(t, []string{"tienda-1", "tienda-2", "tienda-3"}, ks.Shards())

	first := ks.Shard("sid-abc")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ks.Shard("sid-abc"))
	}

	seen := map[string]int{}
	for i := 0; i < 300; i++ {
		seen[ks.Shard(fmt.Sprintf("sid-%d", i))]++
	}
	assert.Len(t, seen, 3, "sessions spread over every shard")
}

func TestKeyspaceKey(t *testing.T) {
	ks := NewKeyspace([]string{"tienda-1", "tienda-2"}, 10)
	key := ks.Key(KindCart, "sid-9")
	assert.True(t, strings.HasPrefix(key, "embutidos:cart:tienda-"), key)
	assert.True(t, strings.HasSuffix(key, ":sid-9"), key)
	assert.Equal(t, "embutidos:cart:"+ks.Shard("sid-9")+":sid-9", key)
	assert.NotEqual(t, key, ks.Key(KindJWT, "sid-9"))
}

func TestKeyspaceAddingShardMovesFewKeys(t *testing.T) {
	before := NewKeyspace([]string{"tienda-1", "tienda-2", "tienda-3"}, 50)
	after := NewKeyspace([]string{"tienda-1", "tienda-2", "tienda-3", "tienda-4"}, 50)

	moved := 0
	const n = 1000
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("sid-%d", i)
		if before.Shard(id) != after.Shard(id) {
			moved++
			// 只会搬到新分片
			assert.Equal(t, "tienda-4", after.Shard(id))
		}
	}
	assert.Less(t, moved, n/2)
}

func TestKeyspaceDefaults(t *testing.T) {
	ks := NewKeyspace(nil, 0)
	assert.Equal(t, []string{defaultShard}, ks.Shards())
	assert.Equal(t, defaultShard, ks.Shard("anything"))
}
