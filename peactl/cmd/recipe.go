/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2024 CERN and copyright holders of ALICE O².
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */

package cmd

import (
	"fmt"

	"github.com/AliceO2Group/ProcessControl/common/product"
	"github.com/AliceO2Group/ProcessControl/peactl/control"
	"github.com/spf13/cobra"
)

// recipeCmd represents the recipe command
var recipeCmd = &cobra.Command{
	Use:     "recipe",
	Aliases: []string{"r"},
	Short:   "list, check and run recipes",
	Long:    `The recipe command allows you to validate and execute recipe documents.`,
}

var recipeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "list available recipes",
	Long:    fmt.Sprintf(`The recipe list command requests from %s the recipe documents of its recipes source.`, product.PRETTY_SHORTNAME),
	Run:     control.WrapCall(control.ListRecipes),
	Args:    cobra.NoArgs,
}

var recipeCheckCmd = &cobra.Command{
	Use:     "check [recipe]",
	Aliases: []string{"validate", "c"},
	Short:   "validate a recipe and show its structure",
	Long: fmt.Sprintf(`The recipe check command renders, validates and builds a recipe without running it.
The recipe is a name below the recipes source of %s, or a full document URI.

With --local, the recipe is a local path or URI and is checked by peactl itself
against the services of the document passed with --services.`, product.PRETTY_SHORTNAME),
	Run: func(cmd *cobra.Command, args []string) {
		if local, _ := cmd.Flags().GetBool("local"); local {
			control.WrapLocalCall(control.CheckRecipeLocal)(cmd, args)
			return
		}
		control.WrapCall(control.CheckRecipe)(cmd, args)
	},
	Args: cobra.ExactArgs(1),
}

var recipeRunCmd = &cobra.Command{
	Use:   "run [recipe]",
	Short: "start a recipe run",
	Long: fmt.Sprintf(`The recipe run command asks %s to start running a recipe and returns the id
of the new run.

With --local, the recipe runs inside peactl against the services of the
document passed with --services, and its events are printed until it ends.`, product.PRETTY_SHORTNAME),
	Run: func(cmd *cobra.Command, args []string) {
		if local, _ := cmd.Flags().GetBool("local"); local {
			control.WrapStreamingCall(control.RunRecipeLocal)(cmd, args)
			return
		}
		control.WrapCall(control.RunRecipe)(cmd, args)
	},
	Args: cobra.ExactArgs(1),
}

func init() {
	rootCmd.AddCommand(recipeCmd)
	recipeCmd.AddCommand(recipeListCmd)
	recipeCmd.AddCommand(recipeCheckCmd)
	recipeCmd.AddCommand(recipeRunCmd)

	for _, c := range []*cobra.Command{recipeCheckCmd, recipeRunCmd} {
		c.Flags().StringToStringP("var", "e", map[string]string{}, "recipe variable override as KEY=VALUE, may be repeated")
		c.Flags().BoolP("local", "l", false, "check or run without a core")
		c.Flags().StringP("services", "s", "", "services document for --local, as a path or URI")
	}
	recipeRunCmd.Flags().Duration("timeout", 0, "give up on a --local run after this long")
}
