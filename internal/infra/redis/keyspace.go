package redis

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strconv"
)

// 店铺在 Redis 里的键类别
const (
	KindCart = "cart"
	KindJWT  = "jwt"
)

const defaultShard = "tienda-0"

// Keyspace 店铺的 Redis 键空间。购物车和 JWT 缓存按一致性哈希落到某个分片前缀下，
// 以后拆成多个 Redis 实例时按前缀整体迁移，已有会话不会大面积换分片。
// 构建后只读，可并发使用。
type Keyspace struct {
	replicas int
	points   []uint32 // 已排序的虚拟节点
	owner    map[uint32]string
	shards   []string
}

// NewKeyspace 创建键空间，shards 为空时只有一个默认分片
func NewKeyspace(shards []string, replicas int) *Keyspace {
	if replicas <= 0 {
		replicas = 50
	}
	ks := &Keyspace{
		replicas: replicas,
		owner:    make(map[uint32]string),
	}
	seen := make(map[string]bool, len(shards))
	for _, s := range shards {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		ks.shards = append(ks.shards, s)
	}
	if len(ks.shards) == 0 {
		ks.shards = []string{defaultShard}
	}
	sort.Strings(ks.shards)

	for _, s := range ks.shards {
		for i := 0; i < replicas; i++ {
			p := crc32.ChecksumIEEE([]byte(s + "#" + strconv.Itoa(i)))
			if _, taken := ks.owner[p]; taken {
				continue
			}
			ks.owner[p] = s
			ks.points = append(ks.points, p)
		}
	}
	sort.Slice(ks.points, func(i, j int) bool { return ks.points[i] < ks.points[j] })
	return ks
}

// Shards 返回全部分片名
func (k *Keyspace) Shards() []string {
	out := make([]string, len(k.shards))
	copy(out, k.shards)
	return out
}

// Shard 顺时针找到第一个虚拟节点
func (k *Keyspace) Shard(id string) string {
	h := crc32.ChecksumIEEE([]byte(id))
	i := sort.Search(len(k.points), func(i int) bool { return k.points[i] >= h })
	if i == len(k.points) {
		i = 0
	}
	return k.owner[k.points[i]]
}

// Key 拼出完整键名，如 embutidos:cart:tienda-2:<sid>
func (k *Keyspace) Key(kind, id string) string {
	return fmt.Sprintf("embutidos:%s:%s:%s", kind, k.Shard(id), id)
}
