package fluctuation

// chunkSize returns the frame count per dispatched task, aiming for
// about four chunks per worker so slow frames rebalance without
// drowning the pool in tiny tasks. Never returns less than 1.
func chunkSize(frames, workers int) int {
	if frames <= 0 || workers <= 0 {
		return 1
	}
	per := workers * 4
	size := frames / per
	if frames%per != 0 {
		size++
	}
	if size < 1 {
		size = 1
	}
	return size
}
