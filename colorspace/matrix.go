// Package colorspace provides the color math used when rendering
// Photoshop documents to sRGB: CIE Lab decoding against the D50 white
// point, Bradford chromatic adaptation to D65, and sRGB companding.
package colorspace

// Vector3 is a 3-component column vector.
type Vector3 [3]float64

// Matrix3x3 is a row-major 3x3 matrix.
type Matrix3x3 [9]float64

// Apply multiplies the matrix by a vector.
func (m Matrix3x3) Apply(v Vector3) Vector3 {
	return Vector3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Multiply computes m * b.
func (m Matrix3x3) Multiply(b Matrix3x3) Matrix3x3 {
	var c Matrix3x3
	c[0] = m[0]*b[0] + m[1]*b[3] + m[2]*b[6]
	c[1] = m[0]*b[1] + m[1]*b[4] + m[2]*b[7]
	c[2] = m[0]*b[2] + m[1]*b[5] + m[2]*b[8]

	c[3] = m[3]*b[0] + m[4]*b[3] + m[5]*b[6]
	c[4] = m[3]*b[1] + m[4]*b[4] + m[5]*b[7]
	c[5] = m[3]*b[2] + m[4]*b[5] + m[5]*b[8]

	c[6] = m[6]*b[0] + m[7]*b[3] + m[8]*b[6]
	c[7] = m[6]*b[1] + m[7]*b[4] + m[8]*b[7]
	c[8] = m[6]*b[2] + m[7]*b[5] + m[8]*b[8]
	return c
}

// Identity3x3 returns the identity matrix.
func Identity3x3() Matrix3x3 {
	return Matrix3x3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}
