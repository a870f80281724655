package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/config"
)

const dbContainer = "loadcell-mysql"

type DockerContainer struct {
	Id    string
	State struct {
		Status     string
		Running    bool
		Paused     bool
		Restarting bool
		OOMKilled  bool
		Dead       bool
		Pid        int
		ExitCode   int
		Error      string
		StartedAt  time.Time
		FinishedAt time.Time
	} `json:"State"`
}

func lcMakeCmdLocalDB() *commander.Command {
	cmd := &commander.Command{
		UsageLine: "localdb",
		Short:     "manage the local trending database",
		Subcommands: []*commander.Command{
			lcMakeCmdLocalDBCreate(),
			lcMakeCmdLocalDBStart(),
			lcMakeCmdLocalDBStop(),
			lcMakeCmdLocalDBRm(),
		},
		Flag: *flag.NewFlagSet("loadcell-localdb", flag.ExitOnError),
	}
	return cmd
}

func lcMakeCmdLocalDBCreate() *commander.Command {
	cmd := &commander.Command{
		Run:       cmdLocalDBCreate,
		UsageLine: "create [options]",
		Short:     "create and run the MySQL container of the trending database",
		Long: `
create runs a MySQL docker container serving the trending database used by
'loadcell run -mysql'. Data is kept under the -dir directory.
An existing container is restarted if needed.

ex:
 $ loadcell localdb create
 $ loadcell localdb create -pass=s3cr3t -dir=/data/mysql
`,
		Flag: *flag.NewFlagSet("loadcell-localdb-create", flag.ExitOnError),
	}
	def := config.Default().MySQL
	cmd.Flag.String("user", def.User, "database user")
	cmd.Flag.String("pass", def.Password, "database user password")
	cmd.Flag.String("root-pass", "root", "database root password")
	cmd.Flag.String("db", def.Name, "database name")
	cmd.Flag.String("port", "3306", "published MySQL port")
	cmd.Flag.String("image", "mysql:8.0", "MySQL docker image")
	cmd.Flag.String("dir", "mysql", "data directory")
	return cmd
}

func lcMakeCmdLocalDBStart() *commander.Command {
	return &commander.Command{
		Run:       cmdLocalDBStart,
		UsageLine: "start",
		Short:     "start the stopped trending database container",
		Long: `
start starts the trending database container created by 'loadcell localdb create'.

ex:
 $ loadcell localdb start
`,
		Flag: *flag.NewFlagSet("loadcell-localdb-start", flag.ExitOnError),
	}
}

func lcMakeCmdLocalDBStop() *commander.Command {
	return &commander.Command{
		Run:       cmdLocalDBStop,
		UsageLine: "stop",
		Short:     "stop the trending database container",
		Long: `
stop stops the trending database container. Data is kept.

ex:
 $ loadcell localdb stop
`,
		Flag: *flag.NewFlagSet("loadcell-localdb-stop", flag.ExitOnError),
	}
}

func lcMakeCmdLocalDBRm() *commander.Command {
	return &commander.Command{
		Run:       cmdLocalDBRm,
		UsageLine: "rm",
		Short:     "remove the trending database container",
		Long: `
rm removes the trending database container. Data under its directory is kept.

ex:
 $ loadcell localdb rm
`,
		Flag: *flag.NewFlagSet("loadcell-localdb-rm", flag.ExitOnError),
	}
}

func cmdLocalDBCreate(cmdr *commander.Command, args []string) error {
	err := lookDocker()
	if err != nil {
		return err
	}

	// is the container already running? created?
	docker, err := dockerContainer(dbContainer)
	if err == nil {

		// container exists.
		// restart it if needed or do nothing (if already running)

		status := docker.State
		switch {
		case status.Running:
			log.Printf("localdb container already running\n")
			return nil

		case status.Restarting:
			log.Printf("localdb container is restarting... (retry later)\n")
			return nil

		case status.Paused:
			log.Printf("localdb container paused. re-starting\n")
			return docker.run("restart", docker.Id)

		case status.OOMKilled:
			return fmt.Errorf("localdb container killed (OOM)")

		case status.Dead:
			return fmt.Errorf("localdb container is dead")

		case status.Status == "exited" || status.Status == "created":
			log.Printf("localdb container stopped. starting\n")
			return docker.run("start", docker.Id)

		default:
			log.Printf("localdb container in UNKNOWN state:\n%v\n", docker)
			return fmt.Errorf("localdb container in UNKNOWN state")
		}
	}
	if docker.Id != "N/A" {
		return err
	}

	dir, err := filepath.Abs(cmdr.Flag.Lookup("dir").Value.Get().(string))
	if err != nil {
		return err
	}
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	get := func(name string) string {
		return cmdr.Flag.Lookup(name).Value.Get().(string)
	}
	return docker.run(
		"run", "--detach",
		"--env", "MYSQL_ROOT_PASSWORD="+get("root-pass"),
		"--env", "MYSQL_USER="+get("user"),
		"--env", "MYSQL_PASSWORD="+get("pass"),
		"--env", "MYSQL_DATABASE="+get("db"),
		"--name", dbContainer,
		"--publish", get("port")+":3306",
		"--volume", dir+":/var/lib/mysql",
		get("image"),
	)
}

func cmdLocalDBStart(cmdr *commander.Command, args []string) error {
	docker, err := localDB()
	if err != nil {
		return err
	}
	if docker.State.Running {
		log.Printf("localdb container already running\n")
		return nil
	}
	return docker.run("start", docker.Id)
}

func cmdLocalDBStop(cmdr *commander.Command, args []string) error {
	docker, err := localDB()
	if err != nil {
		return err
	}
	if !docker.State.Running {
		log.Printf("localdb container is NOT RUNNING\n")
		return nil
	}
	return docker.run("stop", docker.Id)
}

func cmdLocalDBRm(cmdr *commander.Command, args []string) error {
	docker, err := localDB()
	if err != nil {
		return err
	}
	return docker.run("rm", "--force", docker.Id)
}

func lookDocker() error {
	// all the localdb subcommands need docker.
	// make sure it is accessible
	_, err := exec.LookPath("docker")
	if err != nil {
		log.Printf("could not locate 'docker' command: %v\n", err)
		return err
	}
	return nil
}

func localDB() (DockerContainer, error) {
	err := lookDocker()
	if err != nil {
		return DockerContainer{}, err
	}
	docker, err := dockerContainer(dbContainer)
	if err != nil {
		log.Printf("please run 'loadcell localdb create' first\n")
		return docker, fmt.Errorf("no localdb container: %w", err)
	}
	return docker, nil
}

func (DockerContainer) run(args ...string) error {
	cmd := exec.Command("docker", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func dockerContainer(name string) (DockerContainer, error) {
	cmd := exec.Command("docker", "inspect", name)

	out := new(bytes.Buffer)
	cmd.Stdin = os.Stdin
	cmd.Stdout = out

	err := cmd.Run()
	if err != nil {
		// container does not exist
		return DockerContainer{Id: "N/A"}, err
	}

	data := []DockerContainer{}
	err = json.NewDecoder(out).Decode(&data)
	if err != nil {
		return DockerContainer{}, err
	}
	if len(data) != 1 {
		return DockerContainer{}, fmt.Errorf("invalid docker inspect output: %#v", data)
	}

	return data[0], nil
}
