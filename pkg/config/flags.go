package config

// Flags holds command line overrides. Nil fields were not given and leave
// the configured value alone.
type Flags struct {
	Layout      *string
	Bins        *int
	MaxLeafSize *int
	Workers     *int
	Width       *int
	Height      *int
	Supersample *int
	Mode        *string
	AOSamples   *int
	Output      *string
}

// Resolve returns a copy of c with the flags that were set applied
func (c Config) Resolve(f Flags) Config {
	setString(&c.Build.Layout, f.Layout)
	setInt(&c.Build.Bins, f.Bins)
	setInt(&c.Build.MaxLeafSize, f.MaxLeafSize)
	setInt(&c.Workers, f.Workers)
	setInt(&c.Render.Width, f.Width)
	setInt(&c.Render.Height, f.Height)
	setInt(&c.Render.Supersample, f.Supersample)
	setString(&c.Render.Mode, f.Mode)
	setInt(&c.Render.AOSamples, f.AOSamples)
	setString(&c.Render.Output, f.Output)

	// Leaves may not be smaller than the minimum
	if f.MaxLeafSize != nil && c.Build.MinLeafSize > *f.MaxLeafSize {
		c.Build.MinLeafSize = *f.MaxLeafSize
	}
	return c
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
