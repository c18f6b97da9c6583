// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	core "github.com/forkbombeu/avdprovision/internal/avd"
)

func targetKind(target string) string {
	if strings.HasPrefix(target, "sys-img-") {
		return "system image"
	}
	return "platform"
}

func renderTargets(w io.Writer, targets []string) error {
	table := tablewriter.NewTable(w, tablewriter.WithHeaderAutoFormat(tw.Off))
	table.Header("#", "Target", "Kind")
	rows := make([][]string, len(targets))
	for i, target := range targets {
		rows[i] = []string{fmt.Sprint(i + 1), target, targetKind(target)}
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func renderImages(w io.Writer, env core.Env, images []core.Descriptor, version string) error {
	if len(images) == 0 {
		_, err := fmt.Fprintln(w, "No system images installed")
		return err
	}
	table := tablewriter.NewTable(w, tablewriter.WithHeaderAutoFormat(tw.Off))
	table.Header("Image", "ABI", "AVD", "hardware.ini")
	rows := make([][]string, len(images))
	for i, d := range images {
		rows[i] = []string{d.Name, d.ABI, d.AVDName(version), core.HardwareConfigPath(env, d)}
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
