package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/verdant/components"
)

// stubDirectory is a fixed organism view for pool tests.
type stubDirectory struct {
	inactive    map[uint64]bool
	health      map[uint64]uint64
	performance map[uint64]uint64
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		inactive:    make(map[uint64]bool),
		health:      make(map[uint64]uint64),
		performance: make(map[uint64]uint64),
	}
}

func (d *stubDirectory) Active(id uint64) bool { return !d.inactive[id] }

func (d *stubDirectory) HealthOf(id uint64) uint64 {
	if h, ok := d.health[id]; ok {
		return h
	}
	return 10000
}

func (d *stubDirectory) AddPerformance(id, amount uint64) { d.performance[id] += amount }

func newTestPool(dir OrganismDirectory) *Pool {
	return NewPool(dir, 100) // 1% per tick
}

func TestInitializeResourceValidation(t *testing.T) {
	p := newTestPool(newStubDirectory())

	err := p.InitializeResource(0, components.ResourceWater, 0, 10, 1, 100)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	err = p.InitializeResource(0, components.ResourceWater, 1000, 10, 100, 10)
	assert.ErrorIs(t, err, ErrInvalidBounds)
}

func TestAllocateImmediate(t *testing.T) {
	p := newTestPool(newStubDirectory())
	require.NoError(t, p.InitializeResource(0, components.ResourceWater, 1000, 100, 10, 500))

	granted, err := p.Allocate(0, 1, components.ResourceWater, 200, 50)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, uint64(200), p.TotalAllocated(components.ResourceWater))

	alloc, err := p.Allocation(1, components.ResourceWater)
	require.NoError(t, err)
	assert.True(t, alloc.Active)
	assert.False(t, alloc.Pending)
}

func TestAllocateBounds(t *testing.T) {
	p := newTestPool(newStubDirectory())
	require.NoError(t, p.InitializeResource(0, components.ResourceWater, 1000, 100, 10, 500))

	_, err := p.Allocate(0, 1, components.ResourceWater, 5, 50)
	assert.ErrorIs(t, err, ErrAllocationOutOfBounds)

	_, err = p.Allocate(0, 1, components.ResourceWater, 501, 50)
	assert.ErrorIs(t, err, ErrAllocationOutOfBounds)

	_, err = p.Allocate(0, 1, components.ResourceWater, 200, 101)
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestAllocateInactiveOrganism(t *testing.T) {
	dir := newStubDirectory()
	dir.inactive[7] = true
	p := newTestPool(dir)
	require.NoError(t, p.InitializeResource(0, components.ResourceWater, 1000, 100, 10, 500))

	_, err := p.Allocate(0, 7, components.ResourceWater, 200, 50)
	assert.ErrorIs(t, err, ErrOrganismNotActive)
}

func TestAllocateQueuesWhenShort(t *testing.T) {
	p := newTestPool(newStubDirectory())
	require.NoError(t, p.InitializeResource(0, components.ResourceWater, 500, 0, 10, 500))

	granted, err := p.Allocate(0, 1, components.ResourceWater, 400, 50)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = p.Allocate(0, 2, components.ResourceWater, 300, 80)
	require.NoError(t, err)
	assert.False(t, granted, "second request exceeds availability and queues")
	assert.Equal(t, 1, p.QueueLength(components.ResourceWater))

	_, err = p.Allocate(0, 2, components.ResourceWater, 300, 80)
	assert.ErrorIs(t, err, ErrAlreadyInQueue)
}

func TestReleaseDrainsQueueFIFO(t *testing.T) {
	p := newTestPool(newStubDirectory())
	require.NoError(t, p.InitializeResource(0, components.ResourceWater, 500, 0, 10, 500))

	_, err := p.Allocate(0, 1, components.ResourceWater, 400, 0)
	require.NoError(t, err)

	// Queue order: big request first, smaller second. FIFO draining
	// honors arrival order, not fit or priority.
	_, err = p.Allocate(0, 2, components.ResourceWater, 300, 10)
	require.NoError(t, err)
	_, err = p.Allocate(0, 3, components.ResourceWater, 200, 90)
	require.NoError(t, err)
	assert.Equal(t, 2, p.QueueLength(components.ResourceWater))

	// Freeing 100 fits organism 3's request, but the head of the queue
	// (organism 2, amount 300) still does not fit, so nothing activates.
	require.NoError(t, p.Release(5, 1, components.ResourceWater, 100))
	assert.Equal(t, 2, p.QueueLength(components.ResourceWater))

	// Freeing the rest lets both queued requests activate in order.
	require.NoError(t, p.Release(6, 1, components.ResourceWater, 300))
	assert.Equal(t, 0, p.QueueLength(components.ResourceWater))

	a2, err := p.Allocation(2, components.ResourceWater)
	require.NoError(t, err)
	assert.True(t, a2.Active)
	a3, err := p.Allocation(3, components.ResourceWater)
	require.NoError(t, err)
	assert.True(t, a3.Active)
	assert.Equal(t, uint64(500), p.TotalAllocated(components.ResourceWater))
}

func TestClaimProportional(t *testing.T) {
	dir := newStubDirectory()
	p := newTestPool(dir)
	require.NoError(t, p.InitializeResource(0, components.ResourceWater, 1000, 0, 10, 500))
	_, err := p.Allocate(0, 1, components.ResourceWater, 200, 0)
	require.NoError(t, err)

	// 1% per tick x 10 ticks = 10% of 200.
	claimed, err := p.Claim(10, 1, components.ResourceWater)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), claimed)
	assert.Equal(t, uint64(20), dir.performance[1])

	// 200 ticks would be 200%; the claim caps at the allocation amount.
	claimed, err = p.Claim(210, 1, components.ResourceWater)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), claimed)
}

func TestClaimNoAllocation(t *testing.T) {
	p := newTestPool(newStubDirectory())
	require.NoError(t, p.InitializeResource(0, components.ResourceWater, 1000, 0, 10, 500))
	_, err := p.Claim(10, 1, components.ResourceWater)
	assert.ErrorIs(t, err, ErrAllocationNotFound)
}

func TestAvailabilityLazyProjection(t *testing.T) {
	p := newTestPool(newStubDirectory())
	require.NoError(t, p.InitializeResource(0, components.ResourceWater, 1000, 50, 10, 500))
	_, err := p.Allocate(0, 1, components.ResourceWater, 200, 0)
	require.NoError(t, err)

	// Pool starts full, so projection stays capped at capacity.
	available, capacity, allocated, err := p.Availability(10, components.ResourceWater)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), capacity)
	assert.Equal(t, uint64(200), allocated)
	assert.Equal(t, uint64(800), available)
}

func TestAllocationInvariant(t *testing.T) {
	p := newTestPool(newStubDirectory())
	require.NoError(t, p.InitializeResource(0, components.ResourceNitrogen, 300, 0, 10, 300))

	for id := uint64(1); id <= 5; id++ {
		_, err := p.Allocate(0, id, components.ResourceNitrogen, 100, 0)
		require.NoError(t, err)
	}
	// Only three fit; the invariant holds regardless of demand.
	assert.LessOrEqual(t, p.TotalAllocated(components.ResourceNitrogen), uint64(300))
	assert.Equal(t, 2, p.QueueLength(components.ResourceNitrogen))
}

func TestReallocateReplacesShare(t *testing.T) {
	p := newTestPool(newStubDirectory())
	require.NoError(t, p.InitializeResource(0, components.ResourceWater, 1000, 0, 10, 500))

	_, err := p.Allocate(0, 1, components.ResourceWater, 400, 0)
	require.NoError(t, err)
	_, err = p.Allocate(5, 1, components.ResourceWater, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), p.TotalAllocated(components.ResourceWater))
}

func TestOptimizeDistribution(t *testing.T) {
	dir := newStubDirectory()
	dir.health[1] = 9000
	dir.health[2] = 3000
	dir.inactive[3] = true
	p := newTestPool(dir)
	require.NoError(t, p.InitializeResource(0, components.ResourceLight, 1200, 0, 10, 1000))

	require.NoError(t, p.OptimizeDistribution(0, components.ResourceLight, []uint64{1, 2, 3}))

	a1, err := p.Allocation(1, components.ResourceLight)
	require.NoError(t, err)
	a2, err := p.Allocation(2, components.ResourceLight)
	require.NoError(t, err)

	// 1200 split 9000:3000 -> 900 and 300.
	assert.Equal(t, uint64(900), a1.Amount)
	assert.Equal(t, uint64(300), a2.Amount)
	assert.Equal(t, uint64(1200), p.TotalAllocated(components.ResourceLight))

	_, err = p.Allocation(3, components.ResourceLight)
	assert.ErrorIs(t, err, ErrAllocationNotFound, "inactive organisms get nothing")
}

func TestOptimizeDistributionClamps(t *testing.T) {
	dir := newStubDirectory()
	dir.health[1] = 10000
	dir.health[2] = 1
	p := newTestPool(dir)
	require.NoError(t, p.InitializeResource(0, components.ResourceLight, 1000, 0, 50, 400))

	require.NoError(t, p.OptimizeDistribution(0, components.ResourceLight, []uint64{1, 2}))

	a1, err := p.Allocation(1, components.ResourceLight)
	require.NoError(t, err)
	a2, err := p.Allocation(2, components.ResourceLight)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), a1.Amount, "share clamps at max allocation")
	assert.Equal(t, uint64(50), a2.Amount, "share clamps up to min allocation")
}

func TestDeposit(t *testing.T) {
	p := newTestPool(newStubDirectory())
	require.NoError(t, p.InitializeResource(0, components.ResourceNitrogen, 1000, 0, 10, 500))

	// Pool starts full; drain some through release-free accounting first.
	_, err := p.Allocate(0, 1, components.ResourceNitrogen, 300, 0)
	require.NoError(t, err)

	// Still at capacity, so nothing absorbs.
	absorbed, err := p.Deposit(0, components.ResourceNitrogen, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), absorbed)

	_, err = p.Deposit(0, components.ResourceCO2, 10)
	assert.ErrorIs(t, err, ErrResourceNotFound)
}
