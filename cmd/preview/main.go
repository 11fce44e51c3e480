package main

import (
	"bufio"
	"flag"
	"fmt"
	"image"
	"os"
	"strings"

	"sadx-decompiler/internal/decode"
	"sadx-decompiler/internal/moddesc"
	"sadx-decompiler/internal/peimage"
	"sadx-decompiler/internal/preview"
)

func main() {
	imagePath := flag.String("image", "", "Path to the source module (32-bit PE DLL)")
	export := flag.String("export", "", "Export holding a pointer list of models")
	index := flag.Int("index", 0, "Entry of the export's pointer list to render")
	addr := flag.String("addr", "", "Hex address of the entity to render (instead of -export)")
	kind := flag.String("kind", "object", "Entity kind: object or attach")
	format := flag.String("format", "webp", "Output format: webp or tga")
	size := flag.Int("size", 0, "Output size in pixels (default: 256)")
	ss := flag.Int("ss", 0, "Supersample factor (default: 2)")
	yaw := flag.Float64("yaw", 30, "Camera yaw in degrees")
	pitch := flag.Float64("pitch", 20, "Camera pitch in degrees")
	output := flag.String("o", "", "Output file (default: <name>.<format>)")
	flag.Parse()

	if *imagePath == "" || (*export == "") == (*addr == "") {
		fmt.Fprintln(os.Stderr, "Usage: preview -image <module.dll> (-export NAME [-index N] | -addr HEX) [-kind object|attach]")
		os.Exit(2)
	}
	if *kind != "object" && *kind != "attach" {
		fmt.Fprintf(os.Stderr, "Error: unknown kind %q\n", *kind)
		os.Exit(2)
	}

	img, err := peimage.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer img.Close()

	opts := preview.DefaultOptions()
	if *size > 0 {
		opts.Size = *size
	}
	if *ss > 0 {
		opts.Supersample = *ss
	}
	opts.Yaw, opts.Pitch = *yaw, *pitch

	name, pic, err := render(decode.New(img), img, *export, *index, *addr, *kind, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	path := *output
	if path == "" {
		path = name + "." + strings.ToLower(*format)
	}
	if err := save(path, pic, *format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rendered %s → %s\n", name, path)
}

// render resolves the entity either directly by address or as entry index
// of an exported pointer list, then draws it.
func render(r *decode.Reader, img *peimage.Image, export string, index int, addr, kind string, opts preview.Options) (string, *image.NRGBA, error) {
	if addr != "" {
		at, err := moddesc.ParseAddress(addr)
		if err != nil {
			return "", nil, err
		}
		if kind == "attach" {
			a, err := r.ReadAttach(at)
			if err != nil {
				return "", nil, err
			}
			return a.Name, preview.RenderAttach(a, opts), nil
		}
		o, err := r.ReadObject(at)
		if err != nil {
			return "", nil, err
		}
		return o.Name, preview.RenderObject(o, opts), nil
	}

	at := img.Export(export)
	if at == 0 {
		return "", nil, fmt.Errorf("export %s not found", export)
	}
	if index < 0 {
		return "", nil, fmt.Errorf("negative index %d", index)
	}
	if kind == "attach" {
		list, err := r.ReadAttachPointerArray(at, index+1)
		if err != nil {
			return "", nil, err
		}
		a := list.Items[index]
		if a == nil {
			return "", nil, fmt.Errorf("%s[%d] is null", export, index)
		}
		return a.Name, preview.RenderAttach(a, opts), nil
	}
	list, err := r.ReadObjectPointerArray(at, index+1)
	if err != nil {
		return "", nil, err
	}
	o := list.Items[index]
	if o == nil {
		return "", nil, fmt.Errorf("%s[%d] is null", export, index)
	}
	return o.Name, preview.RenderObject(o, opts), nil
}

func save(path string, pic image.Image, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := preview.Encode(w, pic, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
