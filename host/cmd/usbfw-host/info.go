package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/term"

	"usbfw/firmware"
)

type jsonDescriptor struct {
	Kind       string              `json:"kind"`
	Descriptor firmware.Descriptor `json:"descriptor"`
}

type jsonImage struct {
	File        string           `json:"file"`
	Size        int              `json:"size"`
	Offset      int              `json:"descriptor_offset"`
	Descriptors []jsonDescriptor `json:"descriptors"`
	Checksum    string           `json:"checksum"`
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print descriptors as JSON")
	color := fs.String("color", "auto", "Highlight unknown descriptors: auto, always or never")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: usbfw-host info [-json] [-color auto|always|never] FIRMWARE")
		return errUsage
	}
	path := fs.Arg(0)

	img, err := firmware.ReadFile(path)
	if err != nil {
		return err
	}

	if *asJSON {
		return printJSON(os.Stdout, path, img)
	}

	var useColor bool
	switch *color {
	case "always":
		useColor = true
	case "never":
	case "auto":
		useColor = term.IsTerminal(int(os.Stdout.Fd()))
	default:
		return fmt.Errorf("invalid -color value %q", *color)
	}

	if err := firmware.Print(os.Stdout, img, firmware.PrintOptions{Color: useColor}); err != nil {
		return err
	}

	switch err := img.VerifyChecksum(); {
	case err == nil:
		fmt.Println("Checksum: ok")
	case errors.Is(err, firmware.ErrNoChecksum):
	default:
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return nil
}

func printJSON(w io.Writer, path string, img *firmware.Image) error {
	out := jsonImage{
		File:   path,
		Size:   img.Size(),
		Offset: img.DescriptorOffset(),
	}
	for _, d := range img.Descriptors() {
		out.Descriptors = append(out.Descriptors, jsonDescriptor{
			Kind:       descriptorKind(d),
			Descriptor: d,
		})
	}

	switch err := img.VerifyChecksum(); {
	case err == nil:
		out.Checksum = "ok"
	case errors.Is(err, firmware.ErrNoChecksum):
		out.Checksum = "none"
	default:
		out.Checksum = err.Error()
	}

	data, err := sonnet.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func descriptorKind(d firmware.Descriptor) string {
	switch d.(type) {
	case *firmware.OTUS:
		return "otus"
	case *firmware.USB:
		return "usb"
	case *firmware.MOTD:
		return "motd"
	case *firmware.Fix:
		return "fix"
	case *firmware.Debug:
		return "debug"
	case *firmware.Checksum:
		return "checksum"
	case *firmware.Last:
		return "last"
	case *firmware.Unknown:
		return "unknown"
	default:
		panic(fmt.Sprintf("unhandled descriptor %T", d))
	}
}
