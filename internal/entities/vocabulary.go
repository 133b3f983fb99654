package entities

// term is one entry of the skills vocabulary. Short words that are also
// ordinary English ("Go") only match with their exact casing.
type term struct {
	name          string
	caseSensitive bool
}

var vocabulary = []term{
	// languages
	{name: "Python"}, {name: "Java"}, {name: "JavaScript"}, {name: "TypeScript"},
	{name: "Go", caseSensitive: true}, {name: "Golang"}, {name: "Rust", caseSensitive: true}, {name: "C++"},
	{name: "C#"}, {name: "Ruby"}, {name: "PHP"}, {name: "Kotlin"}, {name: "Swift", caseSensitive: true},
	{name: "Scala"}, {name: "Elixir"}, {name: "Haskell"}, {name: "Perl"}, {name: "Dart"},
	{name: "MATLAB"}, {name: "Bash"}, {name: "PowerShell"}, {name: "SQL"}, {name: "HTML"},
	{name: "CSS"}, {name: "Sass"}, {name: "Objective-C"}, {name: "Solidity"}, {name: "Lua"},

	// frameworks and libraries
	{name: "React"}, {name: "React Native"}, {name: "Next.js"}, {name: "Angular"}, {name: "Vue"},
	{name: "Vue.js"}, {name: "Svelte"}, {name: "Node.js"}, {name: "Express", caseSensitive: true}, {name: "NestJS"},
	{name: "Django"}, {name: "Flask"}, {name: "FastAPI"}, {name: "Spring", caseSensitive: true}, {name: "Spring Boot", caseSensitive: true},
	{name: "Rails", caseSensitive: true}, {name: "Ruby on Rails"}, {name: "Laravel"}, {name: ".NET"}, {name: "ASP.NET"},
	{name: "Flutter"}, {name: "jQuery"}, {name: "Tailwind"}, {name: "Bootstrap", caseSensitive: true}, {name: "Redux"},
	{name: "GraphQL"}, {name: "gRPC"}, {name: "REST", caseSensitive: true}, {name: "Kafka"}, {name: "RabbitMQ"},
	{name: "Spark", caseSensitive: true}, {name: "Hadoop"}, {name: "Airflow"}, {name: "dbt"},

	// data and machine learning
	{name: "Pandas"}, {name: "NumPy"}, {name: "SciPy"}, {name: "scikit-learn"}, {name: "TensorFlow"},
	{name: "PyTorch"}, {name: "Keras"}, {name: "Machine Learning"}, {name: "Deep Learning"},
	{name: "NLP"}, {name: "Computer Vision"}, {name: "Data Analysis"}, {name: "Data Science"},
	{name: "Statistics"}, {name: "Tableau"}, {name: "Power BI"}, {name: "Excel", caseSensitive: true}, {name: "LLM"},

	// databases
	{name: "PostgreSQL"}, {name: "MySQL"}, {name: "SQLite"}, {name: "MongoDB"}, {name: "Redis"},
	{name: "Elasticsearch"}, {name: "Cassandra"}, {name: "DynamoDB"}, {name: "Oracle", caseSensitive: true},
	{name: "Snowflake"}, {name: "BigQuery"}, {name: "Firebase"},

	// cloud and operations
	{name: "AWS"}, {name: "Azure"}, {name: "GCP"}, {name: "Google Cloud"}, {name: "Docker"},
	{name: "Kubernetes"}, {name: "Terraform"}, {name: "Ansible"}, {name: "Jenkins"},
	{name: "GitHub Actions"}, {name: "GitLab CI"}, {name: "CI/CD"}, {name: "Linux"}, {name: "Git"},
	{name: "Nginx"}, {name: "Prometheus"}, {name: "Grafana"}, {name: "Helm"}, {name: "Serverless"},
	{name: "Microservices"}, {name: "DevOps"},

	// practices and tools
	{name: "Agile"}, {name: "Scrum"}, {name: "Kanban"}, {name: "Jira"}, {name: "Figma"},
	{name: "TDD"}, {name: "Unit Testing"}, {name: "Selenium"}, {name: "Cypress"}, {name: "Jest"},
	{name: "Postman"}, {name: "OOP"}, {name: "System Design"}, {name: "Data Structures"},
	{name: "Algorithms"},

	// soft skills
	{name: "Leadership"}, {name: "Communication"}, {name: "Teamwork"}, {name: "Problem Solving"},
	{name: "Project Management"}, {name: "Mentoring"}, {name: "Stakeholder Management"},
	{name: "Time Management"}, {name: "Critical Thinking"}, {name: "Collaboration"},
}
