package models

type ImageKind int

const (
	ImageNotBootable ImageKind = iota
	ImageLegacy
	ImageOK
)

func (k ImageKind) String() string {
	switch k {
	case ImageNotBootable:
		return "not bootable"
	case ImageLegacy:
		return "legacy"
	case ImageOK:
		return "ok"
	}
	return "unknown"
}

// Booter locates and loads the program image during fast boot.
type Booter interface {
	ResolveBootableImage() (ImageKind, string, error)
	BootAndInject(path string) error
}
