package math

// GeometryGenerateFaceNormal returns the unit normal of a counter-clockwise triangle.
func GeometryGenerateFaceNormal(p0, p1, p2 Vec3) Vec3 {
	edge1 := p1.Sub(p0)
	edge2 := p2.Sub(p0)
	return edge1.Cross(edge2).Normalized()
}

// GeometryGenerateSmoothNormals produces one normal per position. Every vertex sharing
// an exact position receives the same normal, the area weighted average of the faces
// touching that position.
func GeometryGenerateSmoothNormals(positions []Vec3, triangles [][3]uint32) []Vec3 {
	accum := make(map[Vec3]Vec3, len(positions))
	for _, tri := range triangles {
		if int(tri[0]) >= len(positions) || int(tri[1]) >= len(positions) || int(tri[2]) >= len(positions) {
			continue
		}
		p0 := positions[tri[0]]
		p1 := positions[tri[1]]
		p2 := positions[tri[2]]

		// NOTE: the unnormalized cross product is twice the triangle area, which is the weight.
		c := p1.Sub(p0).Cross(p2.Sub(p0))
		accum[p0] = accum[p0].Add(c)
		accum[p1] = accum[p1].Add(c)
		accum[p2] = accum[p2].Add(c)
	}

	normals := make([]Vec3, len(positions))
	for i, p := range positions {
		normals[i] = accum[p].Normalized()
	}
	return normals
}

// GeometryGenerateTangents computes per-vertex tangents and bitangents from texture
// coordinates. Tangents are orthogonalized against the normal, bitangents follow the
// handedness of the UV mapping. Degenerate UV triangles are skipped.
func GeometryGenerateTangents(positions, normals []Vec3, texcoords []Vec2, triangles [][3]uint32) ([]Vec3, []Vec3) {
	count := len(positions)
	tan := make([]Vec3, count)
	bitan := make([]Vec3, count)

	for _, tri := range triangles {
		i0, i1, i2 := tri[0], tri[1], tri[2]
		if int(i0) >= count || int(i1) >= count || int(i2) >= count {
			continue
		}

		edge1 := positions[i1].Sub(positions[i0])
		edge2 := positions[i2].Sub(positions[i0])

		duv1 := texcoords[i1].Sub(texcoords[i0])
		duv2 := texcoords[i2].Sub(texcoords[i0])

		dividend := duv1.X*duv2.Y - duv2.X*duv1.Y
		if kabs(dividend) < K_FLOAT_EPSILON {
			continue
		}
		fc := 1.0 / dividend

		tangent := Vec3{
			fc * (duv2.Y*edge1.X - duv1.Y*edge2.X),
			fc * (duv2.Y*edge1.Y - duv1.Y*edge2.Y),
			fc * (duv2.Y*edge1.Z - duv1.Y*edge2.Z)}
		bitangent := Vec3{
			fc * (duv1.X*edge2.X - duv2.X*edge1.X),
			fc * (duv1.X*edge2.Y - duv2.X*edge1.Y),
			fc * (duv1.X*edge2.Z - duv2.X*edge1.Z)}

		for _, i := range tri {
			tan[i] = tan[i].Add(tangent)
			bitan[i] = bitan[i].Add(bitangent)
		}
	}

	for i := 0; i < count; i++ {
		n := normals[i]
		t := tan[i]
		if t.LengthSquared() == 0 {
			continue
		}
		// Gram-Schmidt
		t = t.Sub(n.MulScalar(n.Dot(t))).Normalized()

		handedness := float32(1.0)
		if n.Cross(t).Dot(bitan[i]) < 0.0 {
			handedness = -1.0
		}
		tan[i] = t
		bitan[i] = n.Cross(t).MulScalar(handedness).Normalized()
	}
	return tan, bitan
}
