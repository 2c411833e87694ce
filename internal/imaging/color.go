package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Channel tags a saturation decrease. The tags are named after colour
// channels, but each one scales the single shared HSV saturation channel.
type Channel string

const (
	ChannelGreen Channel = "G"
	ChannelBlue  Channel = "B"
)

// SaturationIncrease is the offset added to the 8-bit saturation channel.
const SaturationIncrease = 50

// SaturationPolicy controls AdjustSaturation.
type SaturationPolicy struct {
	// Increase adds SaturationIncrease to the saturation, capped at 255.
	Increase bool

	// Decrease halves the saturation once for each distinct tag present.
	Decrease []Channel
}

// DefaultSaturationPolicy raises the saturation and then applies both decreases.
func DefaultSaturationPolicy() SaturationPolicy {
	return SaturationPolicy{
		Increase: true,
		Decrease: []Channel{ChannelGreen, ChannelBlue},
	}
}

// ParseChannels converts configuration tags ("G", "b", ...) to Channels.
func ParseChannels(tags []string) ([]Channel, error) {
	channels := make([]Channel, 0, len(tags))
	for _, tag := range tags {
		switch Channel(strings.ToUpper(tag)) {
		case ChannelGreen:
			channels = append(channels, ChannelGreen)
		case ChannelBlue:
			channels = append(channels, ChannelBlue)
		default:
			return nil, fmt.Errorf("unknown channel tag: %s", tag)
		}
	}
	return channels, nil
}

func (p SaturationPolicy) has(ch Channel) bool {
	for _, c := range p.Decrease {
		if c == ch {
			return true
		}
	}
	return false
}

// adjust applies the policy to one saturation value on the 0-255 scale.
//
// The increase saturates at 255, each decrease halves the value, and the
// result is clipped to [0, 255] and truncated to an integer.
func (p SaturationPolicy) adjust(s float64) float64 {
	if p.Increase {
		s = math.Min(s+SaturationIncrease, 255)
	}
	if p.has(ChannelGreen) {
		s *= 0.5
	}
	if p.has(ChannelBlue) {
		s *= 0.5
	}
	if s < 0 {
		s = 0
	}
	if s > 255 {
		s = 255
	}
	return math.Trunc(s)
}

// AdjustSaturation returns a copy of img with its HSV saturation modified.
//
// Parameters:
//   - img: Source image. Colour images are transformed; images with a
//     grayscale or alpha-only colour model are returned unchanged.
//   - policy: The saturation adjustment to apply.
//
// Returns a new *image.NRGBA (or img itself for pass-through) with the same
// bounds. Alpha is preserved.
//
// # Algorithm
//
//  1. RGB -> HSV per pixel, saturation rounded onto the 8-bit scale
//  2. Increase (if enabled), then each decrease, then clip and truncate
//  3. HSV -> RGB with the original hue and value
//
// The increase is applied before the decreases, so a pixel with saturation
// 200 and the default policy ends at min(250, 255) * 0.25 = 62.
func AdjustSaturation(img image.Image, policy SaturationPolicy) image.Image {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return img
	}

	out := imaging.Clone(img)
	for i := 0; i+3 < len(out.Pix); i += 4 {
		c := colorful.Color{
			R: float64(out.Pix[i]) / 255.0,
			G: float64(out.Pix[i+1]) / 255.0,
			B: float64(out.Pix[i+2]) / 255.0,
		}
		h, s, v := c.Hsv()
		s8 := policy.adjust(math.Round(s * 255))

		r, g, b := colorful.Hsv(h, s8/255.0, v).RGB255()
		out.Pix[i] = r
		out.Pix[i+1] = g
		out.Pix[i+2] = b
	}
	return out
}

// Saturation returns the 8-bit HSV saturation of a colour.
func Saturation(c color.Color) uint8 {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	_, s, _ := colorful.Color{
		R: float64(nc.R) / 255.0,
		G: float64(nc.G) / 255.0,
		B: float64(nc.B) / 255.0,
	}.Hsv()
	return uint8(math.Round(s * 255))
}
