package cache

// State returns the current sweeper state.
func (c *Cache[K, V]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops an armed sweeper. A later Set may arm it again.
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	stop := c.disarmLocked()
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// armLocked schedules the sweeper when the cache has grown to the threshold.
// Size is only checked here, so a cache that never reaches the threshold
// never runs a background timer.
func (c *Cache[K, V]) armLocked() {
	if c.state == StateArmed || len(c.items) < c.threshold {
		return
	}

	c.gen++
	gen := c.gen
	c.state = StateArmed
	c.stop = c.scheduler.Every(c.ttl, func() { c.sweep(gen) })
}

// disarmLocked moves an armed sweeper to StateDisarmed and hands back its
// stop func for the caller to run outside the lock.
func (c *Cache[K, V]) disarmLocked() func() {
	if c.state != StateArmed {
		return nil
	}
	stop := c.stop
	c.stop = nil
	c.state = StateDisarmed
	return stop
}

func (c *Cache[K, V]) sweep(gen uint64) {
	c.mu.Lock()
	if c.state != StateArmed || c.gen != gen {
		c.mu.Unlock()
		return
	}

	now := c.clock.Now()
	for k, e := range c.items {
		if c.expired(e, now) {
			delete(c.items, k)
		}
	}

	var stop func()
	if len(c.items) < c.threshold {
		stop = c.disarmLocked()
	}
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
}
