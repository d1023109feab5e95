/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// PrimalCmd represents the primal command
var PrimalCmd = &cobra.Command{
	Use:   "primal",
	Short: "Solves the steady flow of a case with the SIMPLE algorithm",
	Long: `
Solves the steady incompressible flow of the case file with the SIMPLE
algorithm and prints the continuity error and the objective value,

fpadj primal -I case.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		fileName, err := cmd.Flags().GetString("inputConditionsFile")
		if err != nil {
			panic(err)
		}
		cp := readCase(fileName)
		verbose := viper.GetBool("verbose")
		if verbose {
			cp.Print()
		}
		c, err := NewCase(cp, verbose)
		if err != nil {
			panic(err)
		}
		r, err := c.SolvePrimal()
		if err != nil {
			panic(err)
		}
		fmt.Printf("SIMPLE iterations = %d, converged = %v, continuity error = %8.5e\n",
			r.Iterations, r.Converged, r.ContinuityError)
		fmt.Printf("%s = %.10g\n", c.Objective.Name(), c.Objective.Calc(c.Flow.State()).Val)
	},
}

func init() {
	rootCmd.AddCommand(PrimalCmd)
	PrimalCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for the case parameters like:\n\t- Mesh\n\t- BCs\n\t- AdjEqnOption")
}
