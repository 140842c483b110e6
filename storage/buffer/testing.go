package buffer

import "github.com/Garen-Wang/bustub/storage/disk"

// TestingNewManager builds a single-instance Manager of the given pool
// size backed by an in-memory disk manager, for use in tests that don't
// care about sharding or WAL.
func TestingNewManager(poolSize int) (*Manager, *disk.MemoryManager) {
	dm := disk.NewMemoryManager()
	m := NewManager(Config{
		PoolSize: poolSize,
		Disk:     dm,
	})
	return m, dm
}

// TestingNewShardedManager builds one shard of a sharded pool backed by an
// in-memory disk manager.
func TestingNewShardedManager(poolSize, numInstances, instanceIndex int) (*Manager, *disk.MemoryManager) {
	dm := disk.NewMemoryManager()
	m := NewManager(Config{
		PoolSize:      poolSize,
		NumInstances:  numInstances,
		InstanceIndex: instanceIndex,
		Disk:          dm,
	})
	return m, dm
}
