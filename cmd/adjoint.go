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

	"github.com/notargets/fpadj/adjoint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// AdjointCmd represents the adjoint command
var AdjointCmd = &cobra.Command{
	Use:   "adjoint",
	Short: "Solves the flow and the fixed point adjoint of the case objective",
	Long: `
Solves the steady flow of the case file, then the discrete adjoint of the
objective by block Gauss-Seidel sweeps over U, p, phi and nuTilda,

fpadj adjoint -I case.yaml`,
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
		pr, err := c.SolvePrimal()
		if err != nil {
			panic(err)
		}
		fmt.Printf("SIMPLE iterations = %d, converged = %v\n", pr.Iterations, pr.Converged)
		F, r, psi, err := c.SolveAdjoint()
		if err != nil {
			panic(err)
		}
		fmt.Printf("%s = %.10g\n%v\n", c.Objective.Name(), F, r)
		if n := len(r.Norms); n > 0 {
			fmt.Printf("Final normalized adjoint residuals: %v\n", r.Norms[n-1])
		}
		fmt.Printf("L2 norms of the adjoint: %v\n", adjoint.NewResidualNorms(psi))
	},
}

func init() {
	rootCmd.AddCommand(AdjointCmd)
	AdjointCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for the case parameters like:\n\t- Mesh\n\t- Objective\n\t- AdjEqnOption")
}
