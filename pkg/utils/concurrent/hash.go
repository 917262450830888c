package concurrent

import (
	"hash/fnv"
)

// HashString 针对 string 类型的标准 FNV-1a 哈希算法
// FNV 算法分布极其均匀，是处理字符串的标准选择
func HashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
