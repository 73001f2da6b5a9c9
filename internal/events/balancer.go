package events

import (
	"hash/fnv"

	"github.com/segmentio/kafka-go"
)

// UserKeyBalancer routes a message to a partition by its key so all requests for the same
// user land on the same partition and are consumed in order.
//
// The FNV-1a sum is folded through int32, which can be negative; Go's % operator truncates
// toward zero, so the remainder of a negative hash would be negative and index outside the
// partition list. The modulus here is floored instead.
type UserKeyBalancer struct{}

var _ kafka.Balancer = UserKeyBalancer{}

func (UserKeyBalancer) Balance(msg kafka.Message, partitions ...int) int {
	return partitions[PartitionIndex(msg.Key, len(partitions))]
}

// PartitionIndex returns the floored-modulus partition index of key over numPartitions. The
// result is in [0, numPartitions) for any key.
func PartitionIndex(key []byte, numPartitions int) int {
	h := fnv.New32a()
	_, _ = h.Write(key)

	idx := int(int32(h.Sum32())) % numPartitions
	if idx < 0 {
		idx += numPartitions
	}
	return idx
}
