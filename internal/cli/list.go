package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ralt/packsmith/internal/models"
	"github.com/ralt/packsmith/internal/packager"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var showFiles bool

	cmd := &cobra.Command{
		Use:   "list <installer>",
		Short: "List the packs of an installer container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), args[0], showFiles)
		},
	}

	cmd.Flags().BoolVarP(&showFiles, "files", "f", false, "Also list the file records of every pack")

	return cmd
}

func runList(out io.Writer, path string, showFiles bool) error {
	inst, err := packager.Open(path)
	if err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Path: path, Err: err}
	}
	defer inst.Close()

	packs, err := inst.Packs()
	if err != nil {
		return &models.PackagerError{Type: models.ErrContainer, Path: path, Err: err}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tFLAGS")
	for _, pack := range packs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", pack.ID, pack.Name, pack.NBytes, packFlags(&pack))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !showFiles {
		return nil
	}

	for _, pack := range packs {
		if err := listFiles(out, inst, &pack); err != nil {
			return &models.PackagerError{Type: models.ErrContainer, Pack: pack.ID, Path: path, Err: err}
		}
	}
	return nil
}

func listFiles(out io.Writer, inst *packager.Installer, pack *models.Pack) error {
	rc, err := inst.OpenPack(pack.ID)
	if err != nil {
		return err
	}
	defer rc.Close()

	fmt.Fprintf(out, "\n[%s]\n", pack.ID)
	_, err = packager.ReadPack(rc, pack.Loose, func(rec *models.FileRecord, _ io.Reader) error {
		_, err := fmt.Fprintf(out, "  %s %10d %s%s\n", fileKind(rec, pack.Loose), rec.Length, rec.TargetPath, fileSuffix(rec))
		return err
	})
	return err
}

func packFlags(pack *models.Pack) string {
	var flags string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{pack.Required, "required"},
		{pack.Preselected, "preselected"},
		{pack.Hidden, "hidden"},
		{pack.Loose, "loose"},
	} {
		if !f.set {
			continue
		}
		if flags != "" {
			flags += ","
		}
		flags += f.name
	}
	if flags == "" {
		return "-"
	}
	return flags
}

// fileKind is a one-letter tag for where a record's content lives
func fileKind(rec *models.FileRecord, loose bool) string {
	switch {
	case rec.Directory:
		return "d"
	case rec.SecondaryCompressed:
		return "x"
	case rec.BackRef != nil:
		return "r"
	case loose:
		return "l"
	default:
		return "f"
	}
}

func fileSuffix(rec *models.FileRecord) string {
	switch {
	case rec.SecondaryCompressed:
		return fmt.Sprintf(" (%s)", packager.AltEntryName(rec.Ticket))
	case rec.BackRef != nil:
		return fmt.Sprintf(" (-> %s@%d)", rec.BackRef.PackID, rec.BackRef.Offset)
	}
	return ""
}
