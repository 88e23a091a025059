package orient

// RelativePosition maps a template-local offset onto the world.
//
// Local offsets are expressed on the axes the template was authored on, where
// clearDir was its forward direction. The offset is turned by the rotation
// from clearDir to houseFacing and added to anchor. Both facings must be
// horizontal.
func RelativePosition(local, anchor Pos, clearDir, houseFacing Direction) Pos {
	return anchor.Add(RotateOffset(local, Between(clearDir, houseFacing)))
}

// LocalPosition is the inverse of RelativePosition.
func LocalPosition(world, anchor Pos, clearDir, houseFacing Direction) Pos {
	return RotateOffset(world.Sub(anchor), Between(clearDir, houseFacing).Inverse())
}
