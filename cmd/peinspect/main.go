package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/Binject/debug/pe"
	"github.com/davecgh/go-spew/spew"

	"sadx-decompiler/internal/peimage"
)

func main() {
	dump := flag.Bool("dump", false, "Dump the raw DOS, COFF and optional headers")
	verify := flag.Bool("verify", false, "Cross-check the section table and image base against a full PE parser")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: peinspect [-dump] [-verify] <module.dll>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	img, err := peimage.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer img.Close()

	h := img.Headers()
	sections := img.Sections()
	fmt.Printf("File:       %s\n", path)
	fmt.Printf("Image base: 0x%08X\n", img.ImageBase())
	fmt.Printf("Sections:   %d\n", len(sections))
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("%-8s  %-10s  %-10s  %-10s  %-10s\n", "Name", "VirtAddr", "VirtSize", "RawOffset", "RawSize")
	for _, s := range sections {
		fmt.Printf("%-8s  0x%08X  0x%08X  0x%08X  0x%08X\n",
			s.Name, s.VirtualAddress, s.VirtualSize, s.RawOffset, s.RawSize)
	}

	exports := img.Exports()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Exports: %d\n", len(exports))
	for _, e := range exports {
		fmt.Printf("  0x%08X  %s\n", e.Address, e.Name)
	}

	if *dump {
		fmt.Println("------------------------------------------------------------")
		spew.Dump(h.DOS)
		fmt.Println()
		spew.Dump(h.File)
		fmt.Println()
		spew.Dump(h.Optional)
		if h.ExportDir != nil {
			fmt.Println()
			spew.Dump(*h.ExportDir)
		}
	}

	if *verify {
		fmt.Println("------------------------------------------------------------")
		problems, err := crossCheck(path, img)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: verify: %v\n", err)
			os.Exit(1)
		}
		if len(problems) > 0 {
			fmt.Printf("Verify: %d mismatches\n", len(problems))
			for _, p := range problems {
				fmt.Printf("  %s\n", p)
			}
			os.Exit(1)
		}
		fmt.Println("Verify: OK")
	}
}

// crossCheck reopens path with Binject's parser and compares what both
// readers report.
func crossCheck(path string, img *peimage.Image) ([]string, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var problems []string
	oh, ok := f.OptionalHeader.(*pe.OptionalHeader32)
	if !ok {
		problems = append(problems, "optional header is not PE32")
	} else if oh.ImageBase != img.ImageBase() {
		problems = append(problems, fmt.Sprintf("image base: 0x%08X vs 0x%08X", img.ImageBase(), oh.ImageBase))
	}

	ours := img.Sections()
	if len(ours) != len(f.Sections) {
		problems = append(problems, fmt.Sprintf("section count: %d vs %d", len(ours), len(f.Sections)))
		return problems, nil
	}
	// Ours are sorted by virtual address; Binject keeps header order.
	theirs := make([]*pe.Section, len(f.Sections))
	copy(theirs, f.Sections)
	sort.SliceStable(theirs, func(i, j int) bool {
		return theirs[i].VirtualAddress < theirs[j].VirtualAddress
	})
	for i, s := range theirs {
		o := ours[i]
		if o.Name != s.Name {
			problems = append(problems, fmt.Sprintf("section %d name: %q vs %q", i, o.Name, s.Name))
		}
		if o.VirtualAddress != s.VirtualAddress || o.VirtualSize != s.VirtualSize {
			problems = append(problems, fmt.Sprintf("section %s: virtual 0x%X+0x%X vs 0x%X+0x%X",
				s.Name, o.VirtualAddress, o.VirtualSize, s.VirtualAddress, s.VirtualSize))
		}
		if o.RawOffset != s.Offset || o.RawSize != s.Size {
			problems = append(problems, fmt.Sprintf("section %s: raw 0x%X+0x%X vs 0x%X+0x%X",
				s.Name, o.RawOffset, o.RawSize, s.Offset, s.Size))
		}
	}
	return problems, nil
}
