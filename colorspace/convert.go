package colorspace

import "math"

// SRGBCompand applies the sRGB transfer curve to a linear value.
func SRGBCompand(linear float64) float64 {
	if linear <= 0.0031308 {
		return 12.92 * linear
	}
	return 1.055*math.Pow(linear, 1.0/2.4) - 0.055
}

// SRGBInverseCompand linearizes an sRGB-encoded value.
func SRGBInverseCompand(srgb float64) float64 {
	if srgb <= 0.04045 {
		return srgb / 12.92
	}
	return math.Pow((srgb+0.055)/1.055, 2.4)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ToUint8 converts a [0,1] value to an 8-bit sample with rounding.
func ToUint8(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

// LabToXYZD50 converts CIE Lab against the D50 reference white to XYZ.
func LabToXYZD50(l, a, b float64) Vector3 {
	fy := (l + 16.0) / 116.0
	fx := fy + a/500.0
	fz := fy - b/200.0

	fx3 := fx * fx * fx
	fy3 := fy * fy * fy
	fz3 := fz * fz * fz

	xr := (116.0*fx - 16.0) / labKappa
	if fx3 > labEpsilon {
		xr = fx3
	}
	yr := l / labKappa
	if l > labKappa*labEpsilon {
		yr = fy3
	}
	zr := (116.0*fz - 16.0) / labKappa
	if fz3 > labEpsilon {
		zr = fz3
	}

	return Vector3{
		xr * D50WhitePoint[0],
		yr * D50WhitePoint[1],
		zr * D50WhitePoint[2],
	}
}

// BradfordAdapt adapts an XYZ color from one reference white to another
// by scaling in the Bradford cone response domain.
func BradfordAdapt(xyz, fromWhite, toWhite Vector3) Vector3 {
	lmsFrom := BradfordForward.Apply(fromWhite)
	lmsTo := BradfordForward.Apply(toWhite)

	lms := BradfordForward.Apply(xyz)
	for i := 0; i < 3; i++ {
		if lmsFrom[i] != 0 {
			lms[i] *= lmsTo[i] / lmsFrom[i]
		}
	}
	return BradfordInverse.Apply(lms)
}

// LabD50ToSRGB8 converts a Lab (D50) sample to 8-bit sRGB: Lab to XYZ
// (D50), Bradford adaptation to D65, the canonical XYZ-to-linear-sRGB
// matrix, then companding.
func LabD50ToSRGB8(l, a, b float64) (uint8, uint8, uint8) {
	xyz := LabToXYZD50(l, a, b)
	xyz = BradfordAdapt(xyz, D50WhitePoint, D65WhitePoint)
	rgb := XYZToSRGB.Apply(xyz)
	return ToUint8(SRGBCompand(rgb[0])),
		ToUint8(SRGBCompand(rgb[1])),
		ToUint8(SRGBCompand(rgb[2]))
}
