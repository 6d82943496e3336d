package main

import (
	"testing"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/stretchr/testify/require"
)

func TestClampPage(t *testing.T) {
	require.Equal(t, 0, clampPage(-1, 4))
	require.Equal(t, 0, clampPage(0, 4))
	require.Equal(t, 2, clampPage(2, 4))
	require.Equal(t, 3, clampPage(4, 4))
}

func TestHelpPages(t *testing.T) {
	pages := helpPages()
	require.NotEmpty(t, pages)

	// Every page is numbered against the total.
	for _, p := range pages {
		require.NotNil(t, p.Footer)
		require.Contains(t, p.Footer.Text, "of")
	}
}

func TestHelpComponents(t *testing.T) {
	pages := len(helpPages())

	first := helpComponents(0, pages)[0].(discordgo.ActionsRow)
	require.True(t, first.Components[0].(discordgo.Button).Disabled)
	require.False(t, first.Components[1].(discordgo.Button).Disabled)

	last := helpComponents(pages-1, pages)[0].(discordgo.ActionsRow)
	require.False(t, last.Components[0].(discordgo.Button).Disabled)
	require.True(t, last.Components[1].(discordgo.Button).Disabled)
}
