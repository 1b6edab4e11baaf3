// Package disc builds bootable Dreamcast disc images.
//
// The data track is an ISO9660 filesystem; the first 16 sectors form the
// system area and hold the IP.BIN bootstrap, which names the initial binary
// the BIOS loads from the filesystem.
package disc

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/filesystem/iso9660"
)

const usageString = `Dreamcast disc image builder.

Usage: %s [flags] <binary> [file ...]

The first file becomes the boot binary, additional files are copied into the
image root as-is.

`

var (
	flags = flag.NewFlagSet("disc", flag.ExitOnError)

	out    = flags.String("o", "", "output image, defaults to the binary with .iso suffix")
	label  = flags.String("label", "DREAMCAST", "volume label")
	title  = flags.String("title", "GO PROGRAM", "game title in the bootstrap")
	ipbin  = flags.String("ipbin", "", "use an existing IP.BIN instead of generating the header")
	run    = flags.String("run", "", "run the image with command, e.g. an emulator")
	serial = flags.String("serial", "T00000", "product number in the bootstrap")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "disc")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() < 1 {
		flags.Usage()
		os.Exit(1)
	}
	infiles := flags.Args()

	outfile := *out
	if outfile == "" {
		noext, _ := strings.CutSuffix(infiles[0], ".bin")
		outfile = noext + ".iso"
	}

	bootname := strings.ToUpper(filepath.Base(infiles[0]))
	meta := Meta{
		Title:   *title,
		Product: *serial,
		Boot:    bootname,
	}

	err := Build(outfile, *label, meta, *ipbin, infiles)
	if err != nil {
		log.Fatalln(err)
	}

	if *run != "" {
		runImage(*run, outfile)
	}
}

// systemAreaSize is the part of the image reserved by ISO9660 and occupied by
// the bootstrap, 16 sectors of 2048 bytes.
const systemAreaSize = 16 * 2048

// Build creates a bootable image at path containing the given files in its
// root directory. If ipbinPath is empty a header-only bootstrap is generated,
// which is sufficient for emulators with a high-level BIOS.
func Build(path, label string, meta Meta, ipbinPath string, files []string) error {
	var total int64
	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			return err
		}
		total += fi.Size()
	}
	// Filesystem metadata overhead, generously.
	size := total + systemAreaSize + 4*1024*1024

	d, err := diskfs.Create(path, size, diskfs.Raw, diskfs.SectorSizeDefault)
	if err != nil {
		return err
	}

	fs, err := d.CreateFilesystem(disk.FilesystemSpec{
		Partition:   0,
		FSType:      filesystem.TypeISO9660,
		VolumeLabel: label,
	})
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := copyIn(fs, f); err != nil {
			return err
		}
	}

	iso, ok := fs.(*iso9660.FileSystem)
	if !ok {
		return fmt.Errorf("unexpected filesystem %T", fs)
	}
	err = iso.Finalize(iso9660.FinalizeOptions{VolumeIdentifier: label})
	if err != nil {
		return err
	}

	bootstrap, err := loadBootstrap(ipbinPath, meta)
	if err != nil {
		return err
	}
	img, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer img.Close()
	_, err = img.WriteAt(bootstrap, 0)
	return err
}

func copyIn(fs filesystem.FileSystem, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	name := "/" + strings.ToUpper(filepath.Base(path))
	dst, err := fs.OpenFile(name, os.O_CREATE|os.O_RDWR)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

func loadBootstrap(path string, meta Meta) ([]byte, error) {
	if path == "" {
		return MakeIPBIN(meta), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) > systemAreaSize {
		return nil, fmt.Errorf("bootstrap too large: %d bytes", len(raw))
	}
	bootstrap := make([]byte, systemAreaSize)
	copy(bootstrap, raw)
	patchIPBIN(bootstrap, meta)
	return bootstrap, nil
}
