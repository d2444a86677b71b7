package colorspace

// Standard illuminant white points in XYZ.
var (
	D65WhitePoint = Vector3{0.95047, 1.0, 1.08883}
	D50WhitePoint = Vector3{0.96422, 1.0, 0.82521}
)

// XYZ (D65) to linear sRGB conversion matrix.
var XYZToSRGB = Matrix3x3{
	3.2404542, -1.5371385, -0.4985314,
	-0.9692660, 1.8760108, 0.0415560,
	0.0556434, -0.2040259, 1.0572252,
}

// Linear sRGB to XYZ (D65) conversion matrix.
var SRGBToXYZ = Matrix3x3{
	0.4124564, 0.3575761, 0.1804375,
	0.2126729, 0.7151522, 0.0721750,
	0.0193339, 0.1191920, 0.9503041,
}

// Bradford cone response matrix and its inverse.
var BradfordForward = Matrix3x3{
	0.8951, 0.2664, -0.1614,
	-0.7502, 1.7135, 0.0367,
	0.0389, -0.0685, 1.0296,
}

var BradfordInverse = Matrix3x3{
	0.9869929, -0.1470543, 0.1599627,
	0.4323053, 0.5183603, 0.0492912,
	-0.0085287, 0.0400428, 0.9684867,
}

// CIE Lab constants: epsilon = 216/24389, kappa = 24389/27.
const (
	labEpsilon = 216.0 / 24389.0
	labKappa   = 24389.0 / 27.0
)
