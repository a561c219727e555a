// Command keainfo prints a summary of a KEA image and, optionally, the raw
// container tree underneath it.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/robert-malhotra/go-kea/internal/store"
	"github.com/robert-malhotra/go-kea/kea"
)

func main() {
	configPath := flag.String("config", "", "YAML file with open options")
	tree := flag.Bool("tree", false, "print every group and dataset in the container")
	attrs := flag.Bool("attrs", false, "print every attribute in the container")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: keainfo [flags] <file.kea>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	var opts []kea.Option
	if *configPath != "" {
		cfg, err := kea.LoadConfig(*configPath)
		if err != nil {
			fatal(err)
		}
		if opts, err = cfg.Options(); err != nil {
			fatal(err)
		}
	}

	if !kea.IsKEAImage(path) {
		fatal(fmt.Errorf("%s is not a KEA image", path))
	}
	img, err := kea.Open(path, kea.ReadOnly, opts...)
	if err != nil {
		fatal(err)
	}
	err = summarise(img)
	img.Close()
	if err != nil {
		fatal(err)
	}

	if *tree || *attrs {
		if err := dump(path, *tree, *attrs); err != nil {
			fatal(err)
		}
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "keainfo: %v\n", err)
	os.Exit(1)
}

func summarise(img *kea.ImageIO) error {
	info, err := img.GetSpatialInfo()
	if err != nil {
		return err
	}
	n, err := img.GetNumOfImageBands()
	if err != nil {
		return err
	}
	st, err := os.Stat(img.Path())
	if err != nil {
		return err
	}

	fmt.Printf("=== %s (%s) ===\n", img.Path(), humanize.IBytes(uint64(st.Size())))
	fmt.Printf("Size:       %d x %d, %d band(s)\n", info.XSize, info.YSize, n)
	fmt.Printf("Origin:     (%g, %g)\n", info.TLX, info.TLY)
	fmt.Printf("Pixel size: (%g, %g), rotation (%g, %g)\n", info.XRes, info.YRes, info.XRot, info.YRot)
	if info.WKT != "" {
		fmt.Printf("CRS:        %s\n", info.WKT)
	}
	md, err := img.GetImageMetaDataAll()
	if err != nil {
		return err
	}
	printMetadata("", md)

	for band := uint(1); band <= n; band++ {
		if err := summariseBand(img, band); err != nil {
			return fmt.Errorf("band %d: %w", band, err)
		}
	}

	s := img.Stats()
	fmt.Printf("\nContainer: %s used, %s free\n", humanize.IBytes(s.EOF), humanize.IBytes(s.FreeBytes))
	return nil
}

func summariseBand(img *kea.ImageIO, band uint) error {
	desc, err := img.GetImageBandDescription(band)
	if err != nil {
		return err
	}
	dt, err := img.GetImageBandDataType(band)
	if err != nil {
		return err
	}
	bs, err := img.GetImageBlockSize(band)
	if err != nil {
		return err
	}
	lt, err := img.GetImageBandLayerType(band)
	if err != nil {
		return err
	}
	ci, err := img.GetImageBandClrInterp(band)
	if err != nil {
		return err
	}

	fmt.Printf("\nBand %d %q: %s, block %d, %s, %s\n", band, desc, dt, bs, lt, ci)
	var nodata float64
	if err := img.GetNoDataValue(band, &nodata); err == nil {
		fmt.Printf("  No data: %g\n", nodata)
	}

	ovs, err := img.GetNumOfOverviews(band)
	if err != nil {
		return err
	}
	for level := uint(1); level <= ovs; level++ {
		x, y, err := img.GetOverviewSize(band, level)
		if err != nil {
			continue
		}
		fmt.Printf("  Overview %d: %d x %d\n", level, x, y)
	}

	if img.AttributeTablePresent(band) {
		att, err := img.GetAttributeTable(band)
		if err != nil {
			return err
		}
		fmt.Printf("  Attribute table: %s rows\n", humanize.Comma(int64(att.Size())))
		for _, col := range att.Columns() {
			fmt.Printf("    [%d] %s (%s) %s\n", col.ColNum, col.Name, col.Type, col.Usage)
		}
	}

	md, err := img.GetImageBandMetaDataAll(band)
	if err != nil {
		return err
	}
	printMetadata("  ", md)
	return nil
}

func printMetadata(indent string, md []kea.MetadataItem) {
	if len(md) == 0 {
		return
	}
	fmt.Printf("%sMetadata:\n", indent)
	for _, item := range md {
		fmt.Printf("%s  %s=%s\n", indent, item.Name, item.Value)
	}
}

// dump walks the raw container below the image.
func dump(path string, tree, attrs bool) error {
	f, err := store.Open(path, store.ReadOnly)
	if err != nil {
		return err
	}
	defer f.Close()

	if tree {
		fmt.Println("\n=== Container tree ===")
		err := store.Walk(f.Root(), func(p string, obj any) error {
			depth := strings.Count(p, "/")
			if p == "/" {
				depth = 0
			}
			indent := strings.Repeat("  ", depth)
			switch o := obj.(type) {
			case *store.Group:
				fmt.Printf("%sGroup %q\n", indent, p)
			case *store.Dataset:
				fmt.Printf("%sDataset %q: %s %v chunks %v, %d stored chunk(s), %s\n",
					indent, p, o.Type(), o.Dims(), o.ChunkDims(),
					o.StoredChunks(), humanize.IBytes(o.StoredBytes()))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if attrs {
		fmt.Println("\n=== Attributes ===")
		return f.WalkAttrs(func(info store.AttrInfo) error {
			if info.Err != nil {
				fmt.Printf("%s: ERROR %v\n", info.Path, info.Err)
				return nil
			}
			fmt.Printf("%s = %v\n", info.Path, info.Value)
			return nil
		})
	}
	return nil
}
