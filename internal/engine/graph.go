package engine

import "github.com/NREL/torc-sub005/internal/domain"

// node mirrors dag_engine.go's dagNode: in-degree plus forward edges
// (Children), but over job ids rather than *dagNode pointers, since the
// engine operates on plain domain.Job values fetched from the store.
type node struct {
	job      domain.Job
	inDegree int
	children []int64
}

// buildGraph resolves explicit DependsOnJobIDs plus implicit
// producer→consumer edges (an input file/user_data id matching some other
// job's output ids) into a node graph restricted to eligible (the subset
// of jobs InitializeJobs or cycle detection should consider — typically
// jobs in {Ready, Blocked, Uninitialized}). A dependency on a job outside
// eligible is treated as satisfied if that job is Completed, and as
// permanently blocking otherwise (it will be resolved when that job's
// status changes and InitializeJobs or CompleteJob re-run).
func buildGraph(all []domain.Job, eligible map[int64]bool) map[int64]*node {
	byID := make(map[int64]domain.Job, len(all))
	for _, j := range all {
		byID[j.ID] = j
	}

	nodes := make(map[int64]*node, len(eligible))
	for id := range eligible {
		j := byID[id]
		nodes[id] = &node{job: j}
	}

	// producer index: artifact id -> producing job id
	fileProducer := make(map[int64]int64)
	userDataProducer := make(map[int64]int64)
	for _, j := range all {
		for _, fid := range j.OutputFileIDs {
			fileProducer[fid] = j.ID
		}
		for _, uid := range j.OutputUserDataIDs {
			userDataProducer[uid] = j.ID
		}
	}

	addEdge := func(producerID, consumerID int64) {
		if producerID == consumerID {
			return
		}
		producer, isProducerJob := byID[producerID]
		if !isProducerJob {
			return
		}
		if producer.Status == domain.StatusCompleted {
			return // satisfied already, no edge needed
		}
		if _, ok := nodes[consumerID]; !ok {
			return
		}
		nodes[consumerID].inDegree++
		if pn, ok := nodes[producerID]; ok {
			pn.children = append(pn.children, consumerID)
		}
	}

	for _, j := range all {
		if _, ok := nodes[j.ID]; !ok {
			continue
		}
		for _, depID := range j.DependsOnJobIDs {
			addEdge(depID, j.ID)
		}
		for _, fid := range j.InputFileIDs {
			if pid, ok := fileProducer[fid]; ok {
				addEdge(pid, j.ID)
			}
		}
		for _, uid := range j.InputUserDataIDs {
			if pid, ok := userDataProducer[uid]; ok {
				addEdge(pid, j.ID)
			}
		}
	}

	return nodes
}

// findCycle runs Tarjan's strongly-connected-components algorithm over
// nodes' forward edges and returns the ids of the first SCC found with more
// than one member, or nil if the graph restricted to nodes is acyclic.
// Generalizes dag_engine.go's buildDAG cycle rejection (which only detects
// "no root nodes") to the full SCC case, since torc's dependency graph can
// have an acyclic prefix feeding into a cycle.
func findCycle(nodes map[int64]*node) []int64 {
	index := 0
	indices := make(map[int64]int)
	lowlink := make(map[int64]int)
	onStack := make(map[int64]bool)
	var stack []int64
	var cyclic []int64

	var strongConnect func(v int64)
	strongConnect = func(v int64) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range nodes[v].children {
			if _, ok := nodes[w]; !ok {
				continue
			}
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var component []int64
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			if len(component) > 1 && cyclic == nil {
				cyclic = component
			}
		}
	}

	for id := range nodes {
		if cyclic != nil {
			break
		}
		if _, seen := indices[id]; !seen {
			strongConnect(id)
		}
	}
	return cyclic
}
