// Command loaderctl drives the loader from assemblyfmt fixture files, for
// manual inspection and scripting: given a set of assemblies, it can
// validate they link, instantiate a non-generic type or function and
// print what came out, or register a native type.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/rolrun/assembly"
	"github.com/wippyai/rolrun/assemblyfmt"
	"github.com/wippyai/rolrun/loader"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var files []string
	var verbose bool

	root := &cobra.Command{
		Use:   "loaderctl",
		Short: "Inspect and drive the instantiation loader from assemblyfmt fixtures",
	}
	root.PersistentFlags().StringSliceVarP(&files, "assembly", "a", nil, "assemblyfmt file to load (repeatable)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	buildLoader := func() (*loader.Loader, error) {
		var log *zap.Logger
		var err error
		if verbose {
			log, err = zap.NewDevelopment()
		} else {
			log = zap.NewNop()
		}
		if err != nil {
			return nil, err
		}
		var assemblies []*assembly.Assembly
		for _, path := range files {
			doc, err := assemblyfmt.ParseFile(path)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			a, err := doc.Build()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			assemblies = append(assemblies, a)
		}
		registry, err := assembly.NewRegistry(assemblies)
		if err != nil {
			return nil, err
		}
		return loader.New(registry, loader.Options{Logger: log})
	}

	root.AddCommand(loadCmd(buildLoader))
	root.AddCommand(getTypeCmd(buildLoader))
	root.AddCommand(getFunctionCmd(buildLoader))
	root.AddCommand(addNativeCmd(buildLoader))

	return root
}

func loadCmd(build func() (*loader.Loader, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Parse and link the given assemblies without instantiating anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := build()
			if err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func getTypeCmd(build func() (*loader.Loader, error)) *cobra.Command {
	var assemblyName string
	var id int
	cmd := &cobra.Command{
		Use:   "get-type",
		Short: "Instantiate a non-generic type and print its layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := build()
			if err != nil {
				return err
			}
			t, err := l.GetType(assembly.TemplateRef{Assembly: assemblyName, ID: id}, nil)
			if err != nil {
				return err
			}
			fmt.Printf("type_id=%d storage=%s size=%d alignment=%d fields=%d\n",
				t.TypeID, t.Storage, t.Size, t.Alignment, len(t.Fields))
			return nil
		},
	}
	cmd.Flags().StringVar(&assemblyName, "assembly", "", "assembly name")
	cmd.Flags().IntVar(&id, "id", 0, "template id")
	cmd.MarkFlagRequired("assembly")
	return cmd
}

func getFunctionCmd(build func() (*loader.Loader, error)) *cobra.Command {
	var assemblyName string
	var id int
	cmd := &cobra.Command{
		Use:   "get-function",
		Short: "Instantiate a non-generic function and print its signature",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := build()
			if err != nil {
				return err
			}
			f, err := l.GetFunction(assembly.TemplateRef{Assembly: assemblyName, ID: id}, nil)
			if err != nil {
				return err
			}
			fmt.Printf("function_id=%d parameters=%d code_bytes=%d\n",
				f.FunctionID, len(f.Parameters), len(f.Code.Instructions))
			return nil
		},
	}
	cmd.Flags().StringVar(&assemblyName, "assembly", "", "assembly name")
	cmd.Flags().IntVar(&id, "id", 0, "template id")
	cmd.MarkFlagRequired("assembly")
	return cmd
}

func addNativeCmd(build func() (*loader.Loader, error)) *cobra.Command {
	var assemblyName, name string
	var size, alignment int
	cmd := &cobra.Command{
		Use:   "add-native",
		Short: "Register a host-provided native type by its exported name",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := build()
			if err != nil {
				return err
			}
			t, err := l.AddNativeType(assemblyName, name, size, alignment)
			if err != nil {
				return err
			}
			fmt.Printf("type_id=%d\n", t.TypeID)
			return nil
		},
	}
	cmd.Flags().StringVar(&assemblyName, "assembly", "", "assembly name")
	cmd.Flags().StringVar(&name, "name", "", "native export name")
	cmd.Flags().IntVar(&size, "size", 1, "native type size in bytes")
	cmd.Flags().IntVar(&alignment, "alignment", 1, "native type alignment in bytes")
	cmd.MarkFlagRequired("assembly")
	cmd.MarkFlagRequired("name")
	return cmd
}
