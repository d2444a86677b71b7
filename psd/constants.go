package psd

// Version information for the library.
const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0

	Version = "0.1.0"
)

// File format constants
const (
	// File signature "8BPS"
	Signature uint32 = 0x38425053

	// Header version values
	VersionPSD uint16 = 1 // standard format
	VersionPSB uint16 = 2 // large document format

	// Resource / tagged block signatures
	SigBIM uint32 = 0x3842494D // "8BIM"
	SigB64 uint32 = 0x38423634 // "8B64"
)

// Format limits
const (
	MaxChannels = 56

	MaxDimensionPSD uint32 = 30000
	MaxDimensionPSB uint32 = 300000

	// Layer extra-data blobs larger than this are treated as misalignment
	// and the layer is demoted to empty.
	maxLayerExtraLength = 1000000

	// Descriptor property/list/reference counts above this are corruption.
	maxDescriptorCount = 1000000

	// Unknown descriptor values fall back to a length-prefixed raw read,
	// capped here.
	maxRawValueLength = 100 * 1024 * 1024
)

// ColorMode is the document color mode as stored in the header.
// Unknown values are retained verbatim and never rejected at parse time.
type ColorMode uint16

const (
	ColorModeBitmap       ColorMode = 0
	ColorModeGrayscale    ColorMode = 1
	ColorModeIndexed      ColorMode = 2
	ColorModeRGB          ColorMode = 3
	ColorModeCMYK         ColorMode = 4
	ColorModeMultichannel ColorMode = 7
	ColorModeDuotone      ColorMode = 8
	ColorModeLab          ColorMode = 9
)

func (m ColorMode) String() string {
	switch m {
	case ColorModeBitmap:
		return "Bitmap"
	case ColorModeGrayscale:
		return "Grayscale"
	case ColorModeIndexed:
		return "Indexed"
	case ColorModeRGB:
		return "RGB"
	case ColorModeCMYK:
		return "CMYK"
	case ColorModeMultichannel:
		return "Multichannel"
	case ColorModeDuotone:
		return "Duotone"
	case ColorModeLab:
		return "Lab"
	default:
		return "Unknown"
	}
}

// Compression is the per-channel / composite compression kind.
type Compression uint16

const (
	CompressionRaw     Compression = 0
	CompressionRLE     Compression = 1
	CompressionZIP     Compression = 2
	CompressionZIPPred Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionRaw:
		return "Raw"
	case CompressionRLE:
		return "RLE"
	case CompressionZIP:
		return "ZIP"
	case CompressionZIPPred:
		return "ZIP+prediction"
	default:
		return "Unknown"
	}
}

// LayerType is the derived classification of a layer, computed from the
// feature set and the channel count.
type LayerType int

const (
	LayerTypePixel LayerType = iota
	LayerTypeText
	LayerTypeSmartObject
	LayerTypeAdjustment
	LayerTypeFill
	LayerTypeEffects
	LayerType3D
	LayerTypeVideo
	LayerTypeGroupStart
	LayerTypeGroupEnd
	LayerTypeEmpty
)

func (t LayerType) String() string {
	switch t {
	case LayerTypePixel:
		return "Pixel"
	case LayerTypeText:
		return "Text"
	case LayerTypeSmartObject:
		return "SmartObject"
	case LayerTypeAdjustment:
		return "Adjustment"
	case LayerTypeFill:
		return "Fill"
	case LayerTypeEffects:
		return "Effects"
	case LayerType3D:
		return "3D"
	case LayerTypeVideo:
		return "Video"
	case LayerTypeGroupStart:
		return "GroupStart"
	case LayerTypeGroupEnd:
		return "GroupEnd"
	case LayerTypeEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Tagged block keys recognized inside layer extra data.
const (
	keyTySh uint32 = 0x54795368 // 'TySh' text (Photoshop 6+)
	keytySh uint32 = 0x74795368 // 'tySh' text (legacy)
	keySoLd uint32 = 0x536F4C64 // 'SoLd' smart object
	keySoLE uint32 = 0x536F4C45 // 'SoLE' smart object (linked)
	keyLfx2 uint32 = 0x6C667832 // 'lfx2' layer effects
	keyVmsk uint32 = 0x766D736B // 'vmsk' vector mask
	keyVmns uint32 = 0x766D6E73 // 'vmns' vector mask (alternate)
	keyLsct uint32 = 0x6C736374 // 'lsct' section divider (group marker)
	keySoCo uint32 = 0x536F436F // 'SoCo' solid color fill
	keyGdFl uint32 = 0x4764466C // 'GdFl' gradient fill
	keyPtFl uint32 = 0x5074466C // 'PtFl' pattern fill
	keyVtrk uint32 = 0x7674726B // 'vtrk' video track
	keyLuni uint32 = 0x6C756E69 // 'luni' Unicode layer name
)

// Adjustment layer keys (non-exhaustive, plus the 'adj' prefix catch-all).
var adjustmentKeys = map[uint32]bool{
	0x62726974: true, // 'brit' brightness/contrast
	0x62727443: true, // 'brtC' brightness/contrast (alt)
	0x6C65766C: true, // 'levl' levels
	0x63757276: true, // 'curv' curves
	0x68756520: true, // 'hue ' hue/saturation
	0x68756532: true, // 'hue2' hue/saturation v2
	0x626C6E63: true, // 'blnc' color balance
	0x76696241: true, // 'vibA' vibrance
	0x65787041: true, // 'expA' exposure
	0x6D697872: true, // 'mixr' channel mixer
	0x73656C63: true, // 'selc' selective color
	0x74687273: true, // 'thrs' threshold
	0x706F7374: true, // 'post' posterize
	0x7068666C: true, // 'phfl' photo filter
	0x6772646D: true, // 'grdm' gradient map
	0x636C724C: true, // 'clrL' color lookup
}
