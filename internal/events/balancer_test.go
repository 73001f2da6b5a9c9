package events

import (
	"fmt"
	"hash/fnv"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PartitionIndex_isAlwaysInRange(t *testing.T) {
	for numPartitions := 1; numPartitions <= 12; numPartitions++ {
		for i := 0; i < 1000; i++ {
			key := []byte(fmt.Sprintf("user-%d", i))
			idx := PartitionIndex(key, numPartitions)
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, numPartitions)
		}
	}
}

func Test_PartitionIndex_negativeInt32HashStaysNonNegative(t *testing.T) {
	// Find a key whose FNV-1a sum folds into a negative int32, which is the case the
	// floored modulus exists for.
	var key []byte
	for i := 0; ; i++ {
		candidate := []byte(fmt.Sprintf("user-%d", i))
		h := fnv.New32a()
		_, _ = h.Write(candidate)
		if int32(h.Sum32()) < 0 {
			key = candidate
			break
		}
	}

	idx := PartitionIndex(key, 7)
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, 7)
}

func Test_PartitionIndex_isDeterministic(t *testing.T) {
	key := []byte("user-abc")
	first := PartitionIndex(key, 10)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, PartitionIndex(key, 10))
	}
}

func Test_UserKeyBalancer_Balance(t *testing.T) {
	balancer := UserKeyBalancer{}
	partitions := []int{3, 5, 7, 9}

	msg := kafka.Message{Key: []byte("user-123")}
	got := balancer.Balance(msg, partitions...)
	assert.Contains(t, partitions, got)

	// same key always routes to the same partition
	for i := 0; i < 50; i++ {
		assert.Equal(t, got, balancer.Balance(msg, partitions...))
	}
}
