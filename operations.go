package sdfscene

// Union joins two distances. Commutative and exact.
func Union(d1, d2 float32) float32 {
	return minf(d1, d2)
}

// Subtract cuts the shape of d1 out of d2. Not commutative.
func Subtract(d1, d2 float32) float32 {
	return maxf(-d1, d2)
}

// Intersect keeps the region common to both shapes.
func Intersect(d1, d2 float32) float32 {
	return maxf(d1, d2)
}

// SmoothUnion is a polynomial smooth minimum of radius k. It is symmetric in d1 and d2
// and returns exactly [Union] when k is zero or either distance is infinite.
func SmoothUnion(d1, d2, k float32) float32 {
	if k <= 0 || isInf(d1) || isInf(d2) {
		return Union(d1, d2)
	}
	h := clampf(0.5+0.5*(d2-d1)/k, 0, 1)
	return mixf(d2, d1, h) - k*h*(1-h)
}

// SmoothSubtract cuts d1 out of d2 rounding the seam with radius k.
// Returns exactly [Subtract] when k is zero or either distance is infinite.
func SmoothSubtract(d1, d2, k float32) float32 {
	if k <= 0 || isInf(d1) || isInf(d2) {
		return Subtract(d1, d2)
	}
	h := clampf(0.5-0.5*(d2+d1)/k, 0, 1)
	return mixf(d2, -d1, h) + k*h*(1-h)
}

// SmoothIntersect is the smooth maximum counterpart of [SmoothUnion].
// Returns exactly [Intersect] when k is zero or either distance is infinite.
func SmoothIntersect(d1, d2, k float32) float32 {
	if k <= 0 || isInf(d1) || isInf(d2) {
		return Intersect(d1, d2)
	}
	h := clampf(0.5-0.5*(d2-d1)/k, 0, 1)
	return mixf(d2, d1, h) + k*h*(1-h)
}

// Fold combines the scene accumulator acc with the distance cur of the next primitive
// using op and blend strength k. Subtractive operators cut cur out of acc.
func (op Op) Fold(acc, cur, k float32) float32 {
	switch op.normalized() {
	case OpReplace:
		return cur
	case OpSubtract:
		return Subtract(cur, acc)
	case OpIntersect:
		return Intersect(acc, cur)
	case OpSmoothUnion:
		return SmoothUnion(acc, cur, k)
	case OpSmoothSubtract:
		return SmoothSubtract(cur, acc, k)
	case OpSmoothIntersect:
		return SmoothIntersect(acc, cur, k)
	}
	return Union(acc, cur)
}

// owner reports whether the folded primitive owns the surface at a point
// where the accumulator is acc and the primitive distance is cur.
// Carved walls keep the accumulator's owner.
func (op Op) owner(acc, cur float32) bool {
	switch op.normalized() {
	case OpReplace:
		return true
	case OpSubtract, OpSmoothSubtract:
		return false
	case OpIntersect, OpSmoothIntersect:
		return cur > acc
	}
	return cur < acc
}
