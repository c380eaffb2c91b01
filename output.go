package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/llehouerou/shelves/internal/library"
	"github.com/llehouerou/shelves/internal/reconcile"
	"github.com/llehouerou/shelves/internal/store"
)

var (
	folderStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderAlbums lists every album of the folders, one row each, with
// 1-based positions as accepted by the move commands.
func renderAlbums(folders []*library.Folder) string {
	var rows [][]string
	for _, f := range folders {
		albums := f.Albums()
		if len(albums) == 0 {
			rows = append(rows, []string{position(f.Index), f.Title, "", "", "", "0"})
			continue
		}
		for i, a := range albums {
			folderPos, folderTitle := "", ""
			if i == 0 {
				folderPos, folderTitle = position(f.Index), f.Title
			}
			rows = append(rows, []string{
				folderPos,
				folderTitle,
				position(a.Index),
				a.Title,
				releaseYear(a),
				strconv.Itoa(a.Len()),
			})
		}
	}
	return renderTable(
		[]string{"#", "Folder", "#", "Album", "Year", "Songs"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignRight},
	)
}

func renderSongs(a *library.Album) string {
	songs := a.Songs()
	rows := make([][]string, 0, len(songs))
	for _, s := range songs {
		rows = append(rows, []string{position(s.Index), string(s.TrackID)})
	}
	return renderTable([]string{"#", "Track"}, rows, []columnAlignment{alignRight, alignLeft})
}

func renderTree(lib *library.Library, withSongs bool) string {
	root := tree.Root("Library").Enumerator(tree.RoundedEnumerator)
	for _, f := range lib.Folders() {
		folder := tree.Root(folderStyle.Render(f.Title))
		for _, a := range f.Albums() {
			label := a.Title
			if year := releaseYear(a); year != "" {
				label += " " + dimStyle.Render("("+year+")")
			}
			if !withSongs {
				folder.Child(label)
				continue
			}
			album := tree.Root(label)
			for _, s := range a.Songs() {
				album.Child(filepath.Base(string(s.TrackID)))
			}
			folder.Child(album)
		}
		root.Child(folder)
	}
	return root.String()
}

func renderStatus(st store.Status) string {
	lastPass := "never"
	if !st.LastPassAt.IsZero() {
		lastPass = fmt.Sprintf("%s (%s)", humanize.Time(st.LastPassAt), st.LastPassAt.Local().Format("2006-01-02 15:04:05"))
	}
	rows := [][]string{
		{"Folders", humanize.Comma(int64(st.Folders))},
		{"Albums", humanize.Comma(int64(st.Albums))},
		{"Songs", humanize.Comma(int64(st.Songs))},
		{"Imported", yesNo(st.Imported)},
		{"Last pass", lastPass},
	}
	return renderTable([]string{"Library", ""}, rows, []columnAlignment{alignLeft, alignLeft})
}

// formatStats lists the non-zero counters of a pass.
func formatStats(s reconcile.Stats) string {
	counters := []struct {
		n    int
		what string
	}{
		{s.Created, "songs added"},
		{s.Deleted, "songs removed"},
		{s.Relocated, "songs moved"},
		{s.Merged, "songs merged"},
		{s.CreatedAlbums, "albums created"},
		{s.DeletedAlbums, "albums removed"},
		{s.CreatedFolders, "folders created"},
		{s.DeletedFolders, "folders removed"},
		{s.Resorted, "albums re-sorted"},
		{s.Redated, "albums re-dated"},
		{s.Reindexed, "containers renumbered"},
	}
	var parts []string
	for _, c := range counters {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.what))
		}
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

func formatPositions(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = position(idx)
	}
	return strings.Join(parts, ", ")
}

func position(index int) string {
	return strconv.Itoa(index + 1)
}

func releaseYear(a *library.Album) string {
	if a.ReleaseDateEstimate == nil {
		return ""
	}
	return strconv.Itoa(a.ReleaseDateEstimate.Year())
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
